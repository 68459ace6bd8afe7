// Package analytics records one event per scan attempt. Recording is
// best-effort and never blocks or fails the scan path: events flow through a
// bounded buffer to a background worker, and overflow drops the event.
package analytics

import (
	"time"

	id "qrflow/pkg/domain"
)

// ScanEvent is the analytics record for one scan attempt, rejected or
// resolved.
type ScanEvent struct {
	ID             id.ScanEventID
	QRCodeID       id.QRCodeID
	Timestamp      time.Time
	Outcome        string // verdict reason code, VALID when resolved
	Source         string // winning content source, empty when rejected
	Variant        string // a/b test arm, empty otherwise
	MatchedRuleIDs []string
	Country        string
	Region         string
	City           string
	DeviceType     string
	OS             string
	Browser        string
	Language       string
	IP             string
	UserAgent      string
	Referrer       string
	DurationMS     int64
}
