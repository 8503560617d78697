package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/relay-server-go/internal/model"
)

type dispatcherDeps struct {
	workflow  *mockWorkflow
	sender    *mockSender
	operators *mockOperatorRepo
	handoffs  *mockHandoffRepo
}

func newTestDispatcher() (*Dispatcher, dispatcherDeps) {
	deps := dispatcherDeps{
		workflow:  new(mockWorkflow),
		sender:    new(mockSender),
		operators: new(mockOperatorRepo),
		handoffs:  new(mockHandoffRepo),
	}
	return NewDispatcher(deps.workflow, deps.sender, deps.operators, deps.handoffs), deps
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	contact := &model.Contact{ID: "contact-1", PhoneNumber: "905551112233", Name: strPtr("Ali")}

	t.Run("ai enabled conversation triggers the workflow", func(t *testing.T) {
		d, deps := newTestDispatcher()
		instance := testInstance()
		instance.CustomPrompt = strPtr("Be brief")
		msg := testInbound()

		deps.workflow.On("Trigger", ctx, WorkflowPayload{
			InstanceName:     "shop1",
			MessageType:      "conversation",
			Message:          WorkflowMessage{Conversation: "Merhaba"},
			Key:              WorkflowKey{RemoteJid: "905551112233@s.whatsapp.net", ID: "ABC1"},
			MessageTimestamp: 1700000000,
			PushName:         "Ali",
			CustomPrompt:     instance.CustomPrompt,
		}).Return(nil)

		route, err := d.Dispatch(ctx, &model.Conversation{ID: "conv-1", AIEnabled: true}, contact, instance, msg)

		require.NoError(t, err)
		assert.Equal(t, RouteAI, route)
		deps.workflow.AssertExpectations(t)
		deps.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("workflow failure is reported with the ai route", func(t *testing.T) {
		d, deps := newTestDispatcher()
		deps.workflow.On("Trigger", ctx, mock.Anything).Return(errors.New("503"))

		route, err := d.Dispatch(ctx, &model.Conversation{AIEnabled: true}, contact, testInstance(), testInbound())

		assert.Equal(t, RouteAI, route)
		assert.ErrorContains(t, err, "trigger workflow")
	})

	t.Run("human mode without assignee queues the message", func(t *testing.T) {
		d, deps := newTestDispatcher()

		route, err := d.Dispatch(ctx, &model.Conversation{AIEnabled: false}, contact, testInstance(), testInbound())

		require.NoError(t, err)
		assert.Equal(t, RouteQueued, route)
		deps.workflow.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything)
	})

	t.Run("operator without phone queues the message", func(t *testing.T) {
		d, deps := newTestDispatcher()
		deps.operators.On("FindByID", ctx, "op-1").Return(&model.Operator{ID: "op-1"}, nil)

		route, err := d.Dispatch(ctx, &model.Conversation{AssignedOperatorID: strPtr("op-1")}, contact, testInstance(), testInbound())

		require.NoError(t, err)
		assert.Equal(t, RouteQueued, route)
		deps.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("assigned operator is notified and the handoff recorded", func(t *testing.T) {
		d, deps := newTestDispatcher()
		op := &model.Operator{ID: "op-1", PhoneNumber: strPtr("905559998877")}

		deps.operators.On("FindByID", ctx, "op-1").Return(op, nil)
		deps.sender.On("SendText", ctx, "shop1", "905559998877", "New message from Ali (+905551112233) on shop1:\nMerhaba").Return(nil)
		deps.handoffs.On("Create", ctx, model.CreateHandoffLogParams{
			ConversationID: "conv-1",
			OperatorID:     "op-1",
			CustomerPhone:  "905551112233",
			Content:        "Merhaba",
		}).Return(&model.HandoffLog{ID: "h-1"}, nil)

		route, err := d.Dispatch(ctx, &model.Conversation{ID: "conv-1", AssignedOperatorID: strPtr("op-1")}, contact, testInstance(), testInbound())

		require.NoError(t, err)
		assert.Equal(t, RouteOperator, route)
		deps.sender.AssertExpectations(t)
		deps.handoffs.AssertExpectations(t)
		deps.workflow.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything)
	})

	t.Run("notification failure still records the handoff", func(t *testing.T) {
		d, deps := newTestDispatcher()
		op := &model.Operator{ID: "op-1", PhoneNumber: strPtr("905559998877")}

		deps.operators.On("FindByID", ctx, "op-1").Return(op, nil)
		deps.sender.On("SendText", ctx, "shop1", "905559998877", mock.Anything).Return(errors.New("gateway down"))
		deps.handoffs.On("Create", ctx, mock.Anything).Return(&model.HandoffLog{ID: "h-1"}, nil)

		route, err := d.Dispatch(ctx, &model.Conversation{ID: "conv-1", AssignedOperatorID: strPtr("op-1")}, contact, testInstance(), testInbound())

		assert.Equal(t, RouteOperator, route)
		assert.ErrorContains(t, err, "notify operator")
		deps.handoffs.AssertExpectations(t)
	})
}
