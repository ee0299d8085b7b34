package message

// Message is a single chat message. ID is assigned by the store on insert and
// never changes afterwards.
type Message struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text" validate:"required"`
	CreatedBy string `json:"createdBy" validate:"required"`
}

// CreatedPayload is what subscribers receive when a message is stored.
type CreatedPayload struct {
	Text      string `json:"text"`
	CreatedBy string `json:"createdBy"`
}

func (m Message) CreatedPayload() CreatedPayload {
	return CreatedPayload{Text: m.Text, CreatedBy: m.CreatedBy}
}

func (p CreatedPayload) Message() Message {
	return Message{Text: p.Text, CreatedBy: p.CreatedBy}
}
