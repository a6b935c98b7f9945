package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/notification"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// NotificationModel is the persistence model for the Notification domain entity.
type NotificationModel struct {
	SchoolAggregateModel
	StudentID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	RecipientPhone string                 `gorm:"type:varchar(20)"`
	RecipientEmail string                 `gorm:"type:varchar(200)"`
	EventType      notification.EventType `gorm:"type:varchar(30);not null;index"`
	Channel        notification.Channel   `gorm:"type:varchar(10);not null"`
	Title          string                 `gorm:"type:varchar(200);not null"`
	Message        string                 `gorm:"type:text;not null"`
	InvoiceID      *uuid.UUID             `gorm:"type:uuid;index"`
	PaymentID      *uuid.UUID             `gorm:"type:uuid"`
	Status         notification.Status    `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	SentAt         *time.Time
	FailureReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification entity.
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		StudentID:           m.StudentID,
		RecipientPhone:      valueobject.PhoneFromCanonical(m.RecipientPhone),
		RecipientEmail:      m.RecipientEmail,
		EventType:           m.EventType,
		Channel:             m.Channel,
		Title:               m.Title,
		Message:             m.Message,
		InvoiceID:           m.InvoiceID,
		PaymentID:           m.PaymentID,
		Status:              m.Status,
		SentAt:              m.SentAt,
		FailureReason:       m.FailureReason,
	}
}

// FromDomain populates the persistence model from a domain Notification entity.
func (m *NotificationModel) FromDomain(n *notification.Notification) {
	m.FromDomainSchoolAggregateRoot(n.SchoolAggregateRoot)
	m.StudentID = n.StudentID
	m.RecipientPhone = n.RecipientPhone.Local()
	m.RecipientEmail = n.RecipientEmail
	m.EventType = n.EventType
	m.Channel = n.Channel
	m.Title = n.Title
	m.Message = n.Message
	m.InvoiceID = n.InvoiceID
	m.PaymentID = n.PaymentID
	m.Status = n.Status
	m.SentAt = n.SentAt
	m.FailureReason = n.FailureReason
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification entity.
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{}
	m.FromDomain(n)
	return m
}
