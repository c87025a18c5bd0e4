package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/ws"
)

const channelTimeout = 15 * time.Second

// Channel delivers a notification to one destination.
type Channel interface {
	Name() string
	Notify(ctx context.Context, tenantID string, n Notification) error
}

// Dispatcher fans notifications out to every channel in the background.
// Channel failures are logged and never reach the caller.
type Dispatcher struct {
	channels []Channel
	wg       sync.WaitGroup
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, n Notification) {
	// Detach from the request: the response may be sent before delivery.
	base := context.WithoutCancel(ctx)
	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			cctx, cancel := context.WithTimeout(base, channelTimeout)
			defer cancel()
			if err := ch.Notify(cctx, tenantID, n); err != nil {
				log.Printf("ERROR: notify via %s: %v", ch.Name(), err)
			}
		}(ch)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToTenant(tenantID string, event ws.Event)
}

// HubChannel pushes notifications to the tenant's open admin windows.
type HubChannel struct {
	hub Broadcaster
}

func NewHubChannel(hub Broadcaster) *HubChannel {
	return &HubChannel{hub: hub}
}

func (c *HubChannel) Name() string { return "websocket" }

func (c *HubChannel) Notify(ctx context.Context, tenantID string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	c.hub.BroadcastToTenant(tenantID, ws.Event{Type: enum.EventNotification, Payload: payload})
	return nil
}

// BotSender is satisfied by *tgbotapi.BotAPI.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel posts notifications to an admin chat.
type TelegramChannel struct {
	bot     BotSender
	chatID  int64
	baseURL string
}

// NewTelegramChannel creates a channel. With a baseURL, messages carry a
// button linking to the notification's page.
func NewTelegramChannel(bot BotSender, chatID int64, baseURL string) *TelegramChannel {
	return &TelegramChannel{bot: bot, chatID: chatID, baseURL: baseURL}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Notify(ctx context.Context, tenantID string, n Notification) error {
	msg := tgbotapi.NewMessage(c.chatID, fmt.Sprintf("%s\n%s\n\nRestaurant: %s", n.Title, n.Body, tenantID))
	if c.baseURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("👁️ View Order", c.baseURL+n.URL()),
			),
		)
	}
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
