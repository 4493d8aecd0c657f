package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramService notifies baristas about new orders via a Telegram bot.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the barista/admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// OrderNotification contains order data for a Telegram notification.
type OrderNotification struct {
	OrderNumber string
	Items       []OrderItemNotification
	TotalAmount float64
	Currency    string
	UserName    string
	Notes       string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Size     string
	Options  string
	Quantity int
	Price    float64
}

// FormatPrice formats a price with its currency.
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// NotifyNewOrder sends a new-order notification to the admin chat.
func (s *TelegramService) NotifyNewOrder(order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	var itemsList strings.Builder
	for i, item := range order.Items {
		label := item.Name
		if item.Size != "" {
			label += " (" + item.Size + ")"
		}
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s\n",
			i+1,
			label,
			item.Quantity,
			FormatPrice(item.Price, order.Currency),
		))
		if item.Options != "" {
			itemsList.WriteString("   + " + item.Options + "\n")
		}
	}

	message := fmt.Sprintf(`<b>☕ NEW ORDER!</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>🧾 Drinks:</b>
%s
<b>💰 Total:</b> %s
<b>📝 Notes:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.OrderNumber,
		order.UserName,
		itemsList.String(),
		FormatPrice(order.TotalAmount, order.Currency),
		order.Notes,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
