package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/repository"
	"github.com/wabridge/relay-server-go/internal/sse"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindInstance(ctx context.Context, name string) (*model.Instance, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

func (m *mockStore) UpdateConnectionStatus(ctx context.Context, name string, status model.ConnectionStatus) (*model.Instance, error) {
	args := m.Called(ctx, name, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Instance), args.Error(1)
}

func (m *mockStore) UpsertContact(ctx context.Context, instanceID, phoneNumber, displayName string) (*model.Contact, error) {
	args := m.Called(ctx, instanceID, phoneNumber, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockStore) RecordInbound(ctx context.Context, instanceID, contactID string, params model.CreateMessageParams) (*model.Conversation, *model.Message, error) {
	args := m.Called(ctx, instanceID, contactID, params)
	var conv *model.Conversation
	if args.Get(0) != nil {
		conv = args.Get(0).(*model.Conversation)
	}
	var msg *model.Message
	if args.Get(1) != nil {
		msg = args.Get(1).(*model.Message)
	}
	return conv, msg, args.Error(2)
}

func (m *mockStore) AppendMessage(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockStore) FindConversationForUser(ctx context.Context, id, userID string) (*model.ConversationSummary, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationSummary), args.Error(1)
}

func (m *mockStore) ListConversations(ctx context.Context, params model.ListConversationsParams) ([]model.ConversationSummary, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]model.ConversationSummary), args.Int(1), args.Error(2)
}

func (m *mockStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	return args.Get(0).([]model.Message), args.Int(1), args.Error(2)
}

func (m *mockStore) SetIntervention(ctx context.Context, conversationID string, operatorID *string) (*model.Conversation, error) {
	args := m.Called(ctx, conversationID, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockStore) Close(ctx context.Context, conversationID string) (*model.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockStore) MarkRead(ctx context.Context, conversationID string) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *mockStore) Touch(ctx context.Context, conversationID string) error {
	return m.Called(ctx, conversationID).Error(0)
}

type mockDeduper struct {
	mock.Mock
}

func (m *mockDeduper) Claim(ctx context.Context, instanceName, messageID string) (bool, error) {
	args := m.Called(ctx, instanceName, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeduper) Release(ctx context.Context, instanceName, messageID string) error {
	return m.Called(ctx, instanceName, messageID).Error(0)
}

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) ForwardToInbox(ctx context.Context, instanceName string, msg *model.InboundMessage, ownerUserID string, channelType model.ChannelType) (*model.BridgeLink, error) {
	args := m.Called(ctx, instanceName, msg, ownerUserID, channelType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BridgeLink), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, conv *model.Conversation, contact *model.Contact, instance *model.Instance, msg *model.InboundMessage) (Route, error) {
	args := m.Called(ctx, conv, contact, instance, msg)
	return args.Get(0).(Route), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, userID string, event sse.Event) error {
	return m.Called(ctx, userID, event).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendText(ctx context.Context, instanceName, phoneNumber, text string) error {
	return m.Called(ctx, instanceName, phoneNumber, text).Error(0)
}

type mockWorkflow struct {
	mock.Mock
}

func (m *mockWorkflow) Trigger(ctx context.Context, payload WorkflowPayload) error {
	return m.Called(ctx, payload).Error(0)
}

type mockInboxAPI struct {
	mock.Mock
}

func (m *mockInboxAPI) SearchContact(ctx context.Context, ep InboxEndpoint, phoneNumber string) (int64, bool, error) {
	args := m.Called(ctx, ep, phoneNumber)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockInboxAPI) CreateContact(ctx context.Context, ep InboxEndpoint, inboxID int64, phoneNumber, name string) (int64, error) {
	args := m.Called(ctx, ep, inboxID, phoneNumber, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxAPI) FindOpenConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (int64, bool, error) {
	args := m.Called(ctx, ep, inboxID, contactID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockInboxAPI) CreateConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (int64, error) {
	args := m.Called(ctx, ep, inboxID, contactID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInboxAPI) ConversationStatus(ctx context.Context, ep InboxEndpoint, conversationID int64) (model.InboxConversationStatus, error) {
	args := m.Called(ctx, ep, conversationID)
	return args.Get(0).(model.InboxConversationStatus), args.Error(1)
}

func (m *mockInboxAPI) CreateIncomingMessage(ctx context.Context, ep InboxEndpoint, conversationID int64, content string) error {
	return m.Called(ctx, ep, conversationID, content).Error(0)
}

type mockOperatorRepo struct {
	mock.Mock
}

func (m *mockOperatorRepo) FindByID(ctx context.Context, id string) (*model.Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operator), args.Error(1)
}

func (m *mockOperatorRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Operator, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operator), args.Error(1)
}

type mockHandoffRepo struct {
	mock.Mock
}

func (m *mockHandoffRepo) Create(ctx context.Context, params model.CreateHandoffLogParams) (*model.HandoffLog, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HandoffLog), args.Error(1)
}

func (m *mockHandoffRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockInboxConfigRepo struct {
	mock.Mock
}

func (m *mockInboxConfigRepo) Find(ctx context.Context, userID, instanceName string, channelType model.ChannelType) (*model.InboxConfig, error) {
	args := m.Called(ctx, userID, instanceName, channelType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InboxConfig), args.Error(1)
}

// mockLinkRepo returns itself from WithTx so expectations cover both paths.
type mockLinkRepo struct {
	mock.Mock
}

func (m *mockLinkRepo) FindLatest(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BridgeLink), args.Error(1)
}

func (m *mockLinkRepo) FindOpen(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BridgeLink), args.Error(1)
}

func (m *mockLinkRepo) FindByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64) (*model.BridgeLink, error) {
	args := m.Called(ctx, instanceName, inboxConversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BridgeLink), args.Error(1)
}

func (m *mockLinkRepo) Create(ctx context.Context, params model.CreateBridgeLinkParams) (*model.BridgeLink, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BridgeLink), args.Error(1)
}

func (m *mockLinkRepo) UpdateStatus(ctx context.Context, id string, status model.InboxConversationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockLinkRepo) UpdateStatusByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) (int64, error) {
	args := m.Called(ctx, instanceName, inboxConversationID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLinkRepo) WithTx(tx *sqlx.Tx) repository.BridgeLinkRepository {
	return m
}

// fakeTx runs the callback without a real transaction.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}
