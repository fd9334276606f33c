package chat

// SendMessageRequest is the body of POST /bookings/:id/messages. ReceiverID
// may be omitted; the other participant of the booking is used then.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id" validate:"omitempty,gt=0"`
	Content    string `json:"content" validate:"required,max=4000"`
}
