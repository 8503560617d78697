package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wabridge/relay-server-go/internal/metrics"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/util"
)

// InboxEndpoint addresses one account of the engagement inbox.
type InboxEndpoint struct {
	BaseURL   string
	AccountID int64
	APIToken  string
}

// InboxAPI is the subset of the engagement inbox API the bridge needs.
type InboxAPI interface {
	SearchContact(ctx context.Context, ep InboxEndpoint, phoneNumber string) (int64, bool, error)
	CreateContact(ctx context.Context, ep InboxEndpoint, inboxID int64, phoneNumber, name string) (int64, error)
	FindOpenConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (int64, bool, error)
	CreateConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (int64, error)
	ConversationStatus(ctx context.Context, ep InboxEndpoint, conversationID int64) (model.InboxConversationStatus, error)
	CreateIncomingMessage(ctx context.Context, ep InboxEndpoint, conversationID int64, content string) error
}

type InboxClient struct {
	client *resty.Client
}

func NewInboxClient(timeout time.Duration) *InboxClient {
	return &InboxClient{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type inboxContact struct {
	ID          int64  `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

type inboxSearchResponse struct {
	Payload []inboxContact `json:"payload"`
}

// Depending on the inbox version the created contact is either the payload
// itself or nested under payload.contact.
type inboxCreateContactResponse struct {
	Payload struct {
		ID      int64         `json:"id"`
		Contact *inboxContact `json:"contact"`
	} `json:"payload"`
}

type inboxConversation struct {
	ID      int64                         `json:"id"`
	InboxID int64                         `json:"inbox_id"`
	Status  model.InboxConversationStatus `json:"status"`
}

type inboxConversationList struct {
	Payload []inboxConversation `json:"payload"`
}

func (c *InboxClient) request(ctx context.Context, ep InboxEndpoint) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("api_access_token", ep.APIToken).
		SetPathParam("account", strconv.FormatInt(ep.AccountID, 10))
}

func accountURL(ep InboxEndpoint, path string) string {
	return ep.BaseURL + "/api/v1/accounts/{account}" + path
}

func checkInboxResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("inbox %s: %w", op, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("inbox %s failed with status %d", op, resp.StatusCode())
	}
	return nil
}

// SearchContact looks the phone number up in the inbox and only accepts an
// exact digit match, since the inbox search is fuzzy.
func (c *InboxClient) SearchContact(ctx context.Context, ep InboxEndpoint, phoneNumber string) (id int64, found bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "search_contact", start, err) }()

	var result inboxSearchResponse
	resp, err := c.request(ctx, ep).
		SetQueryParam("q", "+"+phoneNumber).
		SetResult(&result).
		Get(accountURL(ep, "/contacts/search"))
	if err = checkInboxResponse("search contact", resp, err); err != nil {
		return 0, false, err
	}

	for _, contact := range result.Payload {
		if util.NormalizePhone(contact.PhoneNumber) == phoneNumber {
			return contact.ID, true, nil
		}
	}
	return 0, false, nil
}

func (c *InboxClient) CreateContact(ctx context.Context, ep InboxEndpoint, inboxID int64, phoneNumber, name string) (id int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "create_contact", start, err) }()

	if name == "" {
		name = phoneNumber
	}

	var result inboxCreateContactResponse
	resp, err := c.request(ctx, ep).
		SetBody(map[string]any{
			"inbox_id":     inboxID,
			"name":         name,
			"phone_number": "+" + phoneNumber,
		}).
		SetResult(&result).
		Post(accountURL(ep, "/contacts"))
	if err = checkInboxResponse("create contact", resp, err); err != nil {
		return 0, err
	}

	if result.Payload.Contact != nil && result.Payload.Contact.ID != 0 {
		return result.Payload.Contact.ID, nil
	}
	if result.Payload.ID != 0 {
		return result.Payload.ID, nil
	}
	return 0, fmt.Errorf("inbox create contact: response carried no contact id")
}

// FindOpenConversation returns the contact's open conversation in inboxID, if
// the inbox has one.
func (c *InboxClient) FindOpenConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (id int64, found bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "list_contact_conversations", start, err) }()

	var result inboxConversationList
	resp, err := c.request(ctx, ep).
		SetPathParam("contact", strconv.FormatInt(contactID, 10)).
		SetResult(&result).
		Get(accountURL(ep, "/contacts/{contact}/conversations"))
	if err = checkInboxResponse("list contact conversations", resp, err); err != nil {
		return 0, false, err
	}

	for _, conv := range result.Payload {
		if conv.InboxID == inboxID && conv.Status == model.InboxStatusOpen {
			return conv.ID, true, nil
		}
	}
	return 0, false, nil
}

func (c *InboxClient) CreateConversation(ctx context.Context, ep InboxEndpoint, inboxID, contactID int64) (id int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "create_conversation", start, err) }()

	var result inboxConversation
	resp, err := c.request(ctx, ep).
		SetBody(map[string]any{
			"inbox_id":   inboxID,
			"contact_id": contactID,
			"status":     model.InboxStatusOpen,
		}).
		SetResult(&result).
		Post(accountURL(ep, "/conversations"))
	if err = checkInboxResponse("create conversation", resp, err); err != nil {
		return 0, err
	}
	if result.ID == 0 {
		return 0, fmt.Errorf("inbox create conversation: response carried no conversation id")
	}
	return result.ID, nil
}

// ConversationStatus reports a conversation deleted on the inbox side, or one
// in a status this bridge does not know, as resolved.
func (c *InboxClient) ConversationStatus(ctx context.Context, ep InboxEndpoint, conversationID int64) (status model.InboxConversationStatus, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "get_conversation", start, err) }()

	var result inboxConversation
	resp, err := c.request(ctx, ep).
		SetPathParam("conversation", strconv.FormatInt(conversationID, 10)).
		SetResult(&result).
		Get(accountURL(ep, "/conversations/{conversation}"))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return model.InboxStatusResolved, nil
	}
	if err = checkInboxResponse("get conversation", resp, err); err != nil {
		return "", err
	}
	return model.ParseInboxConversationStatus(string(result.Status)), nil
}

func (c *InboxClient) CreateIncomingMessage(ctx context.Context, ep InboxEndpoint, conversationID int64, content string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("inbox", "create_message", start, err) }()

	resp, err := c.request(ctx, ep).
		SetPathParam("conversation", strconv.FormatInt(conversationID, 10)).
		SetBody(map[string]any{
			"content":      content,
			"message_type": "incoming",
			"private":      false,
		}).
		Post(accountURL(ep, "/conversations/{conversation}/messages"))
	return checkInboxResponse("create message", resp, err)
}
