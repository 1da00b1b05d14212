// Package domain contains core business types and interfaces.
//
// This file defines the Subscription type and the rules that govern email
// capture: address normalization and validation, confirmation token
// generation, and confirmation link construction.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxEmailLength is the longest address accepted by capture.
	MaxEmailLength = 255

	// MaxCourseIDLength and MaxCourseNameLength bound the course fields a
	// client may send. Names are counted in runes.
	MaxCourseIDLength   = 64
	MaxCourseNameLength = 100

	// ConfirmationTokenBytes is the number of random bytes in a confirmation
	// token. Hex encoding yields a 64 character URL-safe string.
	ConfirmationTokenBytes = 32

	// ConfirmPath is the path of the confirmation endpoint.
	ConfirmPath = "/confirm"

	// Query parameter names on the confirmation link.
	ParamToken     = "token"
	ParamEmail     = "email"
	ParamFramework = "framework"
)

// Validation messages, in the order the rules are checked.
const (
	MsgEmailRequired = "Email is required"
	MsgEmailTooLong  = "Email must be 255 characters or less"
	MsgEmailInvalid  = "Please enter a valid email address"
	MsgCourseMissing = "Course is required"
	MsgCourseInvalid = "Course is not valid"
	MsgCourseName    = "Course name must be 100 characters or less and on a single line"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrSubscriptionNotFound is returned by stores when no row matches.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrDuplicateSubscription is returned by stores when an insert collides
	// with an existing (email, course) pair or token.
	ErrDuplicateSubscription = errors.New("subscription already exists")
)

// =============================================================================
// Subscription
// =============================================================================

// Subscription is a single email capture for one course.
//
// A pending subscription carries a confirmation token. Confirming it clears
// the token and sets IsConfirmed; that transition is one-way.
type Subscription struct {
	ID                uuid.UUID
	Email             string
	CourseID          string
	CourseName        string
	ConfirmationToken string // empty once confirmed
	IsConfirmed       bool
	SignupIP          string
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
}

// IsPending returns true if the subscription still awaits confirmation.
func (s *Subscription) IsPending() bool {
	return !s.IsConfirmed && s.ConfirmationToken != ""
}

// =============================================================================
// Email rules
// =============================================================================

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks a normalized address and returns a *ValidationError
// naming only the first rule it violates.
func ValidateEmail(op, email string) error {
	if email == "" {
		return NewValidationError(op, "email", MsgEmailRequired)
	}

	if len(email) > MaxEmailLength {
		return NewValidationError(op, "email", MsgEmailTooLong)
	}

	if !isEmailAddress(email) {
		return NewValidationError(op, "email", MsgEmailInvalid)
	}

	return nil
}

// ValidateCourse checks a trimmed course id and an optional client-supplied
// course name. Ids are slugs (letters, digits, '-' and '_'). Names end up in
// email headers, so control characters are rejected.
func ValidateCourse(op, courseID, courseName string) error {
	if courseID == "" {
		return NewValidationError(op, "course", MsgCourseMissing)
	}

	if len(courseID) > MaxCourseIDLength || !isSlug(courseID) {
		return NewValidationError(op, "course", MsgCourseInvalid)
	}

	if len([]rune(courseName)) > MaxCourseNameLength || strings.IndexFunc(courseName, unicode.IsControl) >= 0 {
		return NewValidationError(op, "course_name", MsgCourseName)
	}

	return nil
}

func isSlug(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// isEmailAddress accepts a bare addr-spec with a dotted domain.
// Display names ("Jane <jane@example.com>") are rejected.
func isEmailAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domainPart := email[at+1:]
	if !strings.Contains(domainPart, ".") {
		return false
	}
	if strings.HasPrefix(domainPart, ".") || strings.HasSuffix(domainPart, ".") {
		return false
	}

	return !strings.Contains(email, "..")
}

// =============================================================================
// Tokens and links
// =============================================================================

// GenerateConfirmationToken returns a fresh random token.
func GenerateConfirmationToken() (string, error) {
	b := make([]byte, ConfirmationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ConfirmationURL builds the link mailed to a subscriber.
func ConfirmationURL(baseURL, email, courseID, token string) string {
	q := url.Values{}
	q.Set(ParamToken, token)
	q.Set(ParamEmail, email)
	q.Set(ParamFramework, courseID)
	return strings.TrimSuffix(baseURL, "/") + ConfirmPath + "?" + q.Encode()
}

// ReminderSubjects is the rotation of subject lines used by the reminder
// sweep. The n-th candidate in a batch gets ReminderSubject(n).
var ReminderSubjects = []string{
	"Reminder: please confirm your subscription",
	"Your course spot is still waiting for you",
	"One click left to start learning test automation",
	"Don't miss out: confirm your email",
}

// ReminderSubject returns the subject for the i-th record of a sweep batch.
func ReminderSubject(i int) string {
	return ReminderSubjects[i%len(ReminderSubjects)]
}

// =============================================================================
// Service Parameters and Results
// =============================================================================

// SubscribeParams contains the raw input from the capture form.
type SubscribeParams struct {
	Email      string
	CourseID   string
	CourseName string // optional; filled from the catalog when empty
	SignupIP   string // optional
}

// SubscribeStatus describes what a capture attempt found and did.
type SubscribeStatus string

const (
	// SubscribeCreated means a new pending record was inserted.
	SubscribeCreated SubscribeStatus = "created"

	// SubscribePending means a pending record already existed and its
	// confirmation email was sent again with the same token.
	SubscribePending SubscribeStatus = "pending"

	// SubscribeAlreadyConfirmed means the pair is already confirmed.
	// Nothing was written and no email was sent.
	SubscribeAlreadyConfirmed SubscribeStatus = "already_confirmed"
)

// SubscribeResult is returned by a capture attempt. It is non-nil alongside
// a delivery error because the record has been stored.
type SubscribeResult struct {
	Status       SubscribeStatus
	Subscription *Subscription
}

// ConfirmParams contains the values carried by a confirmation link.
type ConfirmParams struct {
	Token    string
	Email    string
	CourseID string
}

// ConfirmStatus describes the outcome of a confirmation.
type ConfirmStatus string

const (
	ConfirmConfirmed        ConfirmStatus = "confirmed"
	ConfirmAlreadyConfirmed ConfirmStatus = "already_confirmed"
)

// ConfirmResult is returned by a successful confirmation.
type ConfirmResult struct {
	Status      ConfirmStatus
	CourseName  string
	WelcomeSent bool
}
