package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chainchat/internal/domain"
	"chainchat/internal/ports"
)

// SendFailureReply is appended as a synthetic assistant message when a
// send fails. The user's own message is never retracted.
const SendFailureReply = "Sorry, I encountered an error processing your request. Please try again."

// IdentityProvider supplies the wallet address chat requests are
// authorized with. An empty address means no active identity.
type IdentityProvider interface {
	ActiveAddress() string
}

// ConversationSnapshot is a point-in-time copy of the conversation state.
type ConversationSnapshot struct {
	ConversationID string
	Messages       []domain.Message
	Pending        bool
	// ActiveMemoryIDs is the union of citation ids seen this session,
	// sorted for stable iteration.
	ActiveMemoryIDs []string
}

// ConversationService owns the conversation lifecycle: optimistic message
// echo, assistant replies, feedback, and memory-citation bookkeeping.
type ConversationService struct {
	chat     ports.ChatClient
	store    ports.IdentityStore
	identity IdentityProvider
	clock    ports.Clock
	logger   *zap.Logger

	// conversationID is generated once and survives Clear, so the server
	// can tell a cleared transcript from a new conversation.
	conversationID string

	mu        sync.Mutex
	messages  []domain.Message
	inflight  int
	memoryIDs map[string]struct{}
	userID    string
	subs      map[int]func(ConversationSnapshot)
	nextSubID int
}

func NewConversationService(chat ports.ChatClient, store ports.IdentityStore, identity IdentityProvider, clock ports.Clock, logger *zap.Logger) *ConversationService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConversationService{
		chat:           chat,
		store:          store,
		identity:       identity,
		clock:          clock,
		logger:         logger,
		conversationID: uuid.NewString(),
		memoryIDs:      map[string]struct{}{},
		subs:           map[int]func(ConversationSnapshot){},
	}
}

func (s *ConversationService) ConversationID() string {
	return s.conversationID
}

// SendMessage appends the user's message immediately, sends it, and
// appends the assistant's reply. A failed send appends an error reply
// instead and returns the transport error alongside it.
func (s *ConversationService) SendMessage(ctx context.Context, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	userID, err := s.ensureUserID(ctx)
	if err != nil {
		return domain.Message{}, err
	}
	address := s.identity.ActiveAddress()

	s.mu.Lock()
	s.messages = append(s.messages, domain.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    domain.SenderUser,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
	})
	s.inflight++
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()

	defer func() {
		s.mu.Lock()
		s.inflight--
		done := s.publishLocked()
		s.mu.Unlock()
		done()
	}()

	reply, err := s.chat.SendMessage(ctx, ports.ChatRequest{
		Message:        content,
		UserID:         userID,
		ConversationID: s.conversationID,
		WalletAddress:  address,
	})
	if err != nil {
		errMsg := domain.Message{
			ID:        uuid.NewString(),
			Content:   SendFailureReply,
			Sender:    domain.SenderAssistant,
			Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
			IsError:   true,
		}
		s.appendMessage(errMsg)
		return errMsg, fmt.Errorf("send message: %w", err)
	}

	assistant := domain.Message{
		ID:           reply.ResponseID,
		Content:      reply.Response,
		Sender:       domain.SenderAssistant,
		Timestamp:    s.clock.Now().UTC().Format(time.RFC3339),
		UsedMemories: reply.UsedMemories,
	}
	if assistant.ID == "" {
		assistant.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.messages = append(s.messages, assistant)
	for _, citation := range reply.UsedMemories {
		s.memoryIDs[citation.ID] = struct{}{}
	}
	notify = s.publishLocked()
	s.mu.Unlock()
	notify()

	return assistant, nil
}

// SendFeedback optimistically attaches feedback to a message and submits
// it. Without an active identity it is a silent no-op. A failed
// submission rolls the field back to unset and is only logged.
func (s *ConversationService) SendFeedback(ctx context.Context, messageID string, feedback domain.FeedbackType) error {
	if !feedback.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidFeedback, feedback)
	}

	address := s.identity.ActiveAddress()
	if address == "" {
		return nil
	}

	if err := s.setFeedback(messageID, feedback); err != nil {
		return err
	}

	if err := s.chat.SendFeedback(ctx, address, messageID, feedback); err != nil {
		s.logger.Warn("feedback submission failed",
			zap.String("message_id", messageID),
			zap.String("feedback", string(feedback)),
			zap.Error(err))
		if rollbackErr := s.setFeedback(messageID, domain.FeedbackNone); rollbackErr != nil {
			s.logger.Warn("feedback rollback failed", zap.String("message_id", messageID), zap.Error(rollbackErr))
		}
		return nil
	}

	return nil
}

// Clear empties the transcript and the active memory set. The
// conversation id is not regenerated.
func (s *ConversationService) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.memoryIDs = map[string]struct{}{}
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *ConversationService) Snapshot() ConversationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a fresh snapshot after every
// state change. The returned function unsubscribes.
func (s *ConversationService) Subscribe(fn func(ConversationSnapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// ensureUserID returns the stable per-device user id, creating and
// persisting one on first use.
func (s *ConversationService) ensureUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.userID
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	userID, err := s.store.Get(ctx, ports.KeyUserID)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			return "", fmt.Errorf("load user id: %w", err)
		}
		userID = uuid.NewString()
		if err := s.store.Put(ctx, ports.KeyUserID, userID); err != nil {
			return "", fmt.Errorf("persist user id: %w", err)
		}
	}

	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()

	return userID, nil
}

func (s *ConversationService) appendMessage(msg domain.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *ConversationService) setFeedback(messageID string, feedback domain.FeedbackType) error {
	s.mu.Lock()
	found := false
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Feedback = feedback
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, messageID)
	}
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
	return nil
}

func (s *ConversationService) snapshotLocked() ConversationSnapshot {
	messages := make([]domain.Message, len(s.messages))
	copy(messages, s.messages)

	memoryIDs := make([]string, 0, len(s.memoryIDs))
	for id := range s.memoryIDs {
		memoryIDs = append(memoryIDs, id)
	}
	sort.Strings(memoryIDs)

	return ConversationSnapshot{
		ConversationID:  s.conversationID,
		Messages:        messages,
		Pending:         s.inflight > 0,
		ActiveMemoryIDs: memoryIDs,
	}
}

func (s *ConversationService) publishLocked() func() {
	snap := s.snapshotLocked()
	fns := make([]func(ConversationSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}

	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
