package chat

import "time"

// Message is one chat line ready for display.
type Message struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	Login      string    `json:"login"`   // raw username from the line prefix
	Speaker    string    `json:"speaker"` // display-name tag, or Login when absent
	Text       string    `json:"text"`
	Color      string    `json:"color"` // "#RRGGBB"
	ReceivedAt time.Time `json:"received_at"`
}
