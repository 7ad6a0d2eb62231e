//go:generate go run go.uber.org/mock/mockgen -source=conversation_service.go -destination=../mocks/mock_conversation_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"listing-chat/contract"
	"listing-chat/domain"
	"listing-chat/errors"
	"listing-chat/repositories"

	"github.com/go-playground/validator/v10"
)

type IConversationService interface {
	Start(ctx context.Context, caller domain.Identity, listingID, ownerID string) (domain.Conversation, bool, error)
	List(ctx context.Context, caller domain.Identity) ([]domain.Conversation, error)
	History(ctx context.Context, caller domain.Identity, conversationID string, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, caller domain.Identity, conversationID, query string, limit int) ([]domain.SearchHit, error)
}

type startRequest struct {
	ListingID string `validate:"required,max=128,excludes=:"`
	OwnerID   string `validate:"required,max=128,excludes=:"`
}

type ConversationService struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	index         contract.MessageIndex
	validate      *validator.Validate
}

func NewConversationService(
	log *slog.Logger,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	index contract.MessageIndex,
) *ConversationService {
	return &ConversationService{
		log:           log,
		conversations: conversations,
		messages:      messages,
		index:         index,
		validate:      validator.New(),
	}
}

// Start finds or creates the caller's conversation about a listing.
// Only an inquirer can start one.
func (s *ConversationService) Start(ctx context.Context, caller domain.Identity, listingID, ownerID string) (domain.Conversation, bool, error) {
	if caller.Role != domain.RoleInquirer {
		return domain.Conversation{}, false, errors.ErrInquirerOnly
	}
	request := startRequest{ListingID: listingID, OwnerID: ownerID}
	if err := s.validate.Struct(request); err != nil {
		return domain.Conversation{}, false, fmt.Errorf("%w: %v", errors.ErrInvalidConversation, err)
	}
	conversation, created, err := s.conversations.FindOrCreate(ctx, request.ListingID, caller.SubjectID, request.OwnerID)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	if created {
		s.log.Info("Conversation started",
			"conversation_id", conversation.ID,
			"listing_id", conversation.ListingID,
			"inquirer_id", conversation.InquirerID)
	}
	return conversation, created, nil
}

func (s *ConversationService) List(ctx context.Context, caller domain.Identity) ([]domain.Conversation, error) {
	return s.conversations.ListForUser(ctx, caller.SubjectID)
}

// History returns a page of messages, oldest first, to a participant of the conversation.
func (s *ConversationService) History(ctx context.Context, caller domain.Identity, conversationID string, cursor *string) ([]domain.Message, *string, error) {
	if err := s.authorize(ctx, caller, conversationID); err != nil {
		return nil, nil, err
	}
	return s.messages.GetMessages(ctx, conversationID, cursor)
}

func (s *ConversationService) Search(ctx context.Context, caller domain.Identity, conversationID, query string, limit int) ([]domain.SearchHit, error) {
	if err := s.authorize(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	return s.index.Search(ctx, conversationID, query, limit)
}

func (s *ConversationService) authorize(ctx context.Context, caller domain.Identity, conversationID string) error {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(caller.SubjectID) {
		return errors.ErrNotParticipant
	}
	return nil
}
