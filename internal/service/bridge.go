package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/repository"
	"github.com/wabridge/relay-server-go/internal/util"
)

// InboxBridge mirrors inbound messages into the engagement inbox and relays
// agent replies from the inbox back to the gateway.
type InboxBridge struct {
	configs       repository.InboxConfigRepository
	links         repository.BridgeLinkRepository
	db            database.TxRunner
	inbox         InboxAPI
	sender        ChannelSender
	encryptionKey string
}

func NewInboxBridge(
	configs repository.InboxConfigRepository,
	links repository.BridgeLinkRepository,
	db database.TxRunner,
	inbox InboxAPI,
	sender ChannelSender,
	encryptionKey string,
) *InboxBridge {
	return &InboxBridge{
		configs:       configs,
		links:         links,
		db:            db,
		inbox:         inbox,
		sender:        sender,
		encryptionKey: encryptionKey,
	}
}

func (b *InboxBridge) endpoint(cfg *model.InboxConfig) (InboxEndpoint, error) {
	token := cfg.APIToken
	if b.encryptionKey != "" {
		plain, err := util.Decrypt(b.encryptionKey, token)
		if err != nil {
			return InboxEndpoint{}, fmt.Errorf("decrypt inbox token: %w", err)
		}
		token = plain
	}
	return InboxEndpoint{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		AccountID: cfg.AccountID,
		APIToken:  token,
	}, nil
}

// ForwardToInbox mirrors msg into the inbox configured for the instance. It
// returns (nil, nil) when the instance is not bridged. The open link for the
// thread is reused while the inbox still reports its conversation as open;
// otherwise a new inbox conversation and link replace it.
func (b *InboxBridge) ForwardToInbox(ctx context.Context, instanceName string, msg *model.InboundMessage, ownerUserID string, channelType model.ChannelType) (*model.BridgeLink, error) {
	cfg, err := b.configs.Find(ctx, ownerUserID, instanceName, channelType)
	if err != nil {
		return nil, fmt.Errorf("find inbox config: %w", err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	ep, err := b.endpoint(cfg)
	if err != nil {
		return nil, err
	}

	key := model.BridgeKey{
		UserID:       ownerUserID,
		InstanceName: instanceName,
		PhoneNumber:  msg.PhoneNumber,
		ChannelType:  channelType,
	}

	link, err := b.resolveLink(ctx, ep, cfg, key, msg.SenderName)
	if err != nil {
		return nil, err
	}

	if err := b.inbox.CreateIncomingMessage(ctx, ep, link.InboxConversationID, msg.Text); err != nil {
		return nil, fmt.Errorf("post inbox message: %w", err)
	}

	log.Debug().
		Str("instance", instanceName).
		Str("messageId", msg.MessageID).
		Int64("inboxConversationId", link.InboxConversationID).
		Msg("message mirrored to inbox")

	return link, nil
}

func (b *InboxBridge) resolveLink(ctx context.Context, ep InboxEndpoint, cfg *model.InboxConfig, key model.BridgeKey, senderName string) (*model.BridgeLink, error) {
	open, err := b.links.FindOpen(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find open link: %w", err)
	}

	var stale *model.BridgeLink
	var staleStatus model.InboxConversationStatus
	var contactID int64

	if open != nil {
		status, err := b.inbox.ConversationStatus(ctx, ep, open.InboxConversationID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("instance", key.InstanceName).
				Int64("inboxConversationId", open.InboxConversationID).
				Msg("inbox status check failed, reusing open link")
			return open, nil
		}
		if status == model.InboxStatusOpen {
			return open, nil
		}
		stale, staleStatus = open, model.ParseInboxConversationStatus(string(status))
		contactID = open.InboxContactID
	} else {
		contactID, err = b.resolveContact(ctx, ep, cfg, key, senderName)
		if err != nil {
			return nil, err
		}
	}

	conversationID, found, err := b.inbox.FindOpenConversation(ctx, ep, cfg.InboxID, contactID)
	if err != nil {
		return nil, fmt.Errorf("find open inbox conversation: %w", err)
	}
	if !found {
		conversationID, err = b.inbox.CreateConversation(ctx, ep, cfg.InboxID, contactID)
		if err != nil {
			return nil, fmt.Errorf("create inbox conversation: %w", err)
		}
	}

	var created *model.BridgeLink
	err = b.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		links := b.links.WithTx(tx)
		if stale != nil {
			if err := links.UpdateStatus(ctx, stale.ID, staleStatus); err != nil {
				return fmt.Errorf("mark stale link: %w", err)
			}
		}
		link, err := links.Create(ctx, model.CreateBridgeLinkParams{
			BridgeKey:           key,
			InboxContactID:      contactID,
			InboxConversationID: conversationID,
		})
		if err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		created = link
		return nil
	})
	if repository.IsUniqueViolation(err) {
		// A concurrent first message linked the thread first.
		winner, ferr := b.links.FindOpen(ctx, key)
		if ferr != nil {
			return nil, fmt.Errorf("find open link: %w", ferr)
		}
		if winner != nil {
			log.Info().
				Str("instance", key.InstanceName).
				Int64("inboxConversationId", winner.InboxConversationID).
				Int64("discardedConversationId", conversationID).
				Msg("bridge link created concurrently, reusing it")
			return winner, nil
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("instance", key.InstanceName).
		Int64("inboxContactId", contactID).
		Int64("inboxConversationId", conversationID).
		Bool("reopened", stale != nil).
		Bool("existingConversation", found).
		Msg("bridge link created")

	return created, nil
}

// resolveContact prefers the contact id of an earlier link for the thread,
// then an inbox search by phone, and creates the inbox contact last.
func (b *InboxBridge) resolveContact(ctx context.Context, ep InboxEndpoint, cfg *model.InboxConfig, key model.BridgeKey, senderName string) (int64, error) {
	latest, err := b.links.FindLatest(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("find latest link: %w", err)
	}
	if latest != nil {
		return latest.InboxContactID, nil
	}

	id, found, err := b.inbox.SearchContact(ctx, ep, key.PhoneNumber)
	if err != nil {
		return 0, fmt.Errorf("search inbox contact: %w", err)
	}
	if found {
		return id, nil
	}

	id, err = b.inbox.CreateContact(ctx, ep, cfg.InboxID, key.PhoneNumber, senderName)
	if err != nil {
		return 0, fmt.Errorf("create inbox contact: %w", err)
	}
	return id, nil
}

// ForwardToChannel delivers text to phoneNumber through the gateway.
func (b *InboxBridge) ForwardToChannel(ctx context.Context, instanceName, text, phoneNumber string) error {
	if err := b.sender.SendText(ctx, instanceName, phoneNumber, text); err != nil {
		return fmt.Errorf("forward to channel: %w", err)
	}
	return nil
}

// RelayAgentReply forwards an inbox agent reply to the counterpart linked to
// the inbox conversation. It reports false when no link exists.
func (b *InboxBridge) RelayAgentReply(ctx context.Context, instanceName string, inboxConversationID int64, text string) (bool, error) {
	link, err := b.links.FindByInboxConversation(ctx, instanceName, inboxConversationID)
	if err != nil {
		return false, fmt.Errorf("find link: %w", err)
	}
	if link == nil {
		return false, nil
	}

	if err := b.ForwardToChannel(ctx, instanceName, text, link.PhoneNumber); err != nil {
		return false, err
	}

	log.Info().
		Str("instance", instanceName).
		Int64("inboxConversationId", inboxConversationID).
		Msg("agent reply relayed")

	return true, nil
}

// HandleConversationStatus records a status change reported by the inbox.
func (b *InboxBridge) HandleConversationStatus(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) error {
	status = model.ParseInboxConversationStatus(string(status))
	n, err := b.links.UpdateStatusByInboxConversation(ctx, instanceName, inboxConversationID, status)
	if err != nil {
		return fmt.Errorf("update link status: %w", err)
	}

	log.Debug().
		Str("instance", instanceName).
		Int64("inboxConversationId", inboxConversationID).
		Str("status", string(status)).
		Int64("links", n).
		Msg("bridge link status updated")

	return nil
}
