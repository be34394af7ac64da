package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedbackTypeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, FeedbackLike.Valid())
	assert.True(t, FeedbackDislike.Valid())
	assert.False(t, FeedbackNone.Valid())
	assert.False(t, FeedbackType("rating").Valid())
}

func TestRemoteErrorPrefersServerDetail(t *testing.T) {
	t.Parallel()

	withDetail := &RemoteError{Status: 400, Detail: "Invalid transaction"}
	assert.Equal(t, "Invalid transaction", withDetail.Error())

	withoutDetail := &RemoteError{Status: 502}
	assert.Equal(t, "remote service returned status 502", withoutDetail.Error())
}
