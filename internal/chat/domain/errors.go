package domain

import "errors"

var (
	// ErrEmptySubmission draft has neither text nor attachment
	ErrEmptySubmission = errors.New("empty submission")
	// ErrUploadFailed attachment could not be stored
	ErrUploadFailed = errors.New("attachment upload failed")
	// ErrUnsupportedAttachment attachment is not an image
	ErrUnsupportedAttachment = errors.New("only image attachments are supported")
	// ErrConversationNotFound no conversation with that id
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound no message with that id in the conversation
	ErrMessageNotFound = errors.New("message not found")
	// ErrRevisionConflict conversation changed since it was read
	ErrRevisionConflict = errors.New("conversation revision conflict")
	// ErrForbidden viewer may not access the conversation
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidContact contact form validation failed
	ErrInvalidContact = errors.New("invalid contact submission")
	// ErrNoConversation session has not entered a conversation
	ErrNoConversation = errors.New("no conversation entered")
)
