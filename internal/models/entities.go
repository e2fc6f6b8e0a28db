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

	"github.com/shopspring/decimal"
)

// Source table names in the operational store
const (
	TableUsers              = "UserTable"
	TableWallets            = "WalletTable"
	TableWalletTransactions = "WalletTransactionTable"
	TableReferrals          = "TierReferralTable"
	TableTiers              = "TierDetailsTable"
	TableLeads              = "LeadTable"
	TableWithdrawals        = "WithdrawnTable"
	TableOrders             = "OrderTable"
	TableAggregates         = "AdminAggregatesTable"
)

// Secondary index names
const (
	IndexUserPhone = "phoneNumberIndex"
	IndexUserEmail = "emailIndex"
	IndexUser      = "userIndex"
	IndexUserId    = "userIdIndex"
)

// User represents a loyalty program member
type User struct {
	Id           string `json:"userId"`
	Name         string `json:"userName"`
	PhoneNumber  string `json:"phoneNumber"`
	Email        string `json:"emailId"`
	TierId       string `json:"tierId"`
	ReferralCode string `json:"referralCode"`
	CreatedTime  any    `json:"created_time"`
}

func UserFromItem(item Item) User {
	return User{
		Id:           item.String("userId"),
		Name:         item.String("userName"),
		PhoneNumber:  item.String("phoneNumber"),
		Email:        item.String("emailId"),
		TierId:       item.String("tierId"),
		ReferralCode: item.String("referralCode"),
		CreatedTime:  item["created_time"],
	}
}

// Wallet holds a user's coin balances
type Wallet struct {
	Id              string          `json:"walletId"`
	UserId          string          `json:"userId"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	UsedAmount      decimal.Decimal `json:"usedAmount"`
}

func WalletFromItem(item Item) Wallet {
	return Wallet{
		Id:              item.String("walletId"),
		UserId:          item.String("userId"),
		RemainingAmount: item.Decimal("remainingAmount"),
		TotalAmount:     item.Decimal("totalAmount"),
		UsedAmount:      item.Decimal("usedAmount"),
	}
}

// Transaction is an immutable wallet ledger entry
type Transaction struct {
	Id          string          `json:"transactionId"`
	UserId      string          `json:"userId"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	CreatedTime any             `json:"created_time"`
}

func TransactionFromItem(item Item) Transaction {
	return Transaction{
		Id:          item.String("transactionId"),
		UserId:      item.String("userId"),
		Title:       item.String("title"),
		Amount:      item.Decimal("amount"),
		Reason:      item.String("reason"),
		Status:      item.String("status"),
		CreatedTime: item["created_time"],
	}
}

// Type classifies the entry by the sign of its amount.
func (t Transaction) Type() string {
	return TransactionType(t.Amount.InexactFloat64())
}

// NormalizedTitle is the lowercased, trimmed title used as a classification key.
func (t Transaction) NormalizedTitle() string {
	return strings.ToLower(strings.TrimSpace(t.Title))
}

// TransactionType returns "credit" for non-negative amounts, "debit" otherwise.
func TransactionType(amount float64) string {
	if amount >= 0 {
		return "credit"
	}
	return "debit"
}

// Referral records a member inviting a phone number
type Referral struct {
	Id          string `json:"tierReferralId"`
	UserId      string `json:"userId"`
	SentTo      string `json:"sentTo"`
	AppliedCode string `json:"appliedCode"`
	CreatedTime any    `json:"created_time"`
}

func ReferralFromItem(item Item) Referral {
	return Referral{
		Id:          item.String("tierReferralId"),
		UserId:      item.String("userId"),
		SentTo:      item.String("sentTo"),
		AppliedCode: item.String("appliedCode"),
		CreatedTime: item["created_time"],
	}
}

// Status is "applied" once the invitee used the code, "pending" before.
func (r Referral) Status() string {
	return ReferralStatus(r.AppliedCode)
}

func ReferralStatus(appliedCode string) string {
	if appliedCode != "" {
		return "applied"
	}
	return "pending"
}

// Lead is a sales lead generated by a member
type Lead struct {
	Id              string          `json:"leadId"`
	UserId          string          `json:"userId"`
	LeadName        string          `json:"leadName"`
	LeadPhoneNumber string          `json:"leadPhoneNumber"`
	OccasionName    string          `json:"occasionName"`
	LeadStage       string          `json:"leadStage"`
	EstimatedValue  decimal.Decimal `json:"estimatedValue"`
	CreatedTime     any             `json:"created_time"`
}

func LeadFromItem(item Item) Lead {
	return Lead{
		Id:              item.String("leadId"),
		UserId:          item.String("userId"),
		LeadName:        item.String("leadName"),
		LeadPhoneNumber: item.String("leadPhoneNumber"),
		OccasionName:    item.String("occasionName"),
		LeadStage:       item.String("leadStage"),
		EstimatedValue:  item.Decimal("estimatedValue"),
		CreatedTime:     item["created_time"],
	}
}

// Withdrawal is a member's request to cash out coins
type Withdrawal struct {
	Id              string          `json:"requestedId"`
	UserId          string          `json:"userId"`
	RequestedAmount decimal.Decimal `json:"requestedAmount"`
	ApprovedAmount  decimal.Decimal `json:"approvedAmount"`
	Status          string          `json:"status"`
	BankId          string          `json:"bankId"`
	UpiId           string          `json:"upiId"`
	CreatedTime     any             `json:"created_time"`
	UpdatedTime     any             `json:"updated_time"`
}

func WithdrawalFromItem(item Item) Withdrawal {
	return Withdrawal{
		Id:              item.String("requestedId"),
		UserId:          item.String("userId"),
		RequestedAmount: item.Decimal("requestedAmount"),
		ApprovedAmount:  item.Decimal("approvedAmount"),
		Status:          item.String("status"),
		BankId:          item.String("bankId"),
		UpiId:           item.String("upiId"),
		CreatedTime:     item["created_time"],
		UpdatedTime:     item["updated_time"],
	}
}

func (w Withdrawal) IsPending() bool {
	return IsPendingStatus(w.Status)
}

// IsPendingStatus matches "pending" case-insensitively.
func IsPendingStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == "pending"
}

// Withdrawal review statuses written by admins
const (
	WithdrawalApproved = "Approved"
	WithdrawalRejected = "Rejected"
)

// Tier is a loyalty rank lookup row
type Tier struct {
	Id   string `json:"tierId"`
	Type string `json:"tierType"`
}

func TierFromItem(item Item) Tier {
	return Tier{
		Id:   item.String("tierId"),
		Type: item.String("tierType"),
	}
}

// Order is a storefront order placed by a member
type Order struct {
	Id          string          `json:"orderId"`
	UserId      string          `json:"userId"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	SubTotal    decimal.Decimal `json:"subTotal"`
	Discount    decimal.Decimal `json:"discount"`
	CoinsUsed   decimal.Decimal `json:"coinsUsed"`
	OrderStatus string          `json:"orderStatus"`
	PaymentMode string          `json:"paymentMode"`
	CreatedTime any             `json:"created_time"`
}

func OrderFromItem(item Item) Order {
	return Order{
		Id:          item.String("orderId"),
		UserId:      item.String("userId"),
		GrandTotal:  item.Decimal("grandTotal"),
		SubTotal:    item.Decimal("subTotal"),
		Discount:    item.Decimal("discount"),
		CoinsUsed:   item.Decimal("coinsUsed"),
		OrderStatus: item.String("orderStatus"),
		PaymentMode: item.String("paymentMode"),
		CreatedTime: item["created_time"],
	}
}

// UnknownName is the display placeholder for unresolved user references.
const UnknownName = "Unknown"
