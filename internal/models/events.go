/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"strings"
	"time"
)

// EventKind is the mutation type of a change event
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventModify EventKind = "MODIFY"
	EventRemove EventKind = "REMOVE"
)

// ParseEventKind accepts the kind case-insensitively; ok is false for anything else.
func ParseEventKind(s string) (EventKind, bool) {
	switch EventKind(strings.ToUpper(strings.TrimSpace(s))) {
	case EventInsert:
		return EventInsert, true
	case EventModify:
		return EventModify, true
	case EventRemove:
		return EventRemove, true
	default:
		return "", false
	}
}

// SourceEntity identifies which source table produced a change event.
// It is attached when the event is ingested.
type SourceEntity int

const (
	SourceUnknown SourceEntity = iota
	SourceWallet
	SourceReferral
	SourceLead
	SourceWithdrawal
)

func (s SourceEntity) String() string {
	switch s {
	case SourceWallet:
		return "wallet"
	case SourceReferral:
		return "referral"
	case SourceLead:
		return "lead"
	case SourceWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// Table returns the source table the entity lives in.
func (s SourceEntity) Table() string {
	switch s {
	case SourceWallet:
		return TableWallets
	case SourceReferral:
		return TableReferrals
	case SourceLead:
		return TableLeads
	case SourceWithdrawal:
		return TableWithdrawals
	default:
		return ""
	}
}

// ParseSourceEntity maps an ingestion tag (entity name or exact table name) to its entity.
func ParseSourceEntity(tag string) SourceEntity {
	switch strings.TrimSpace(tag) {
	case "wallet", "WALLET", TableWallets:
		return SourceWallet
	case "referral", "REFERRAL", TableReferrals:
		return SourceReferral
	case "lead", "LEAD", TableLeads:
		return SourceLead
	case "withdrawal", "WITHDRAWAL", TableWithdrawals:
		return SourceWithdrawal
	default:
		return SourceUnknown
	}
}

// ChangeEvent is a before/after image of one source record mutation
type ChangeEvent struct {
	Id         string
	Kind       EventKind
	Source     SourceEntity
	Keys       Item
	NewImage   Item
	OldImage   Item
	ReceivedAt time.Time
}
