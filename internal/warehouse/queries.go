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

package warehouse

// {schema} is replaced with the warehouse schema and {period} with an
// optional created_at predicate before execution.
const (
	// Coin rollups
	queryCoinsByTier = `
		SELECT COALESCE(tier_name, '') AS tier_name,
		       COUNT(*) AS users,
		       COALESCE(SUM(remaining_coins), 0) AS coins
		FROM {schema}.dim_loyalty_users
		GROUP BY tier_name`

	queryTotalCoins = `
		SELECT COALESCE(SUM(remaining_coins), 0)
		FROM {schema}.dim_loyalty_users`

	queryActiveUsersCount = `
		SELECT COUNT(*)
		FROM {schema}.dim_loyalty_users
		WHERE remaining_coins > 0`

	// Leaderboards
	queryTopCoinHolders = `
		SELECT user_id, COALESCE(user_name, '') AS user_name, remaining_coins AS value
		FROM {schema}.dim_loyalty_users
		WHERE remaining_coins > 0
		ORDER BY remaining_coins DESC, user_id
		LIMIT ?`

	queryTopEarners = `
		SELECT u.user_id, COALESCE(u.user_name, '') AS user_name,
		       COALESCE(SUM(t.amount), 0) AS value
		FROM {schema}.dim_loyalty_users u
		LEFT JOIN {schema}.fact_wallet_transactions t
		       ON u.user_id = t.user_id
		      AND t.amount > 0
		      AND LOWER(TRIM(t.title)) IN ?
		      {period}
		GROUP BY u.user_id, u.user_name
		ORDER BY value DESC, u.user_id
		LIMIT ?`

	queryTopAddedToWallet = `
		SELECT u.user_id, COALESCE(u.user_name, '') AS user_name,
		       COALESCE(SUM(t.amount), 0) AS value
		FROM {schema}.dim_loyalty_users u
		LEFT JOIN {schema}.fact_wallet_transactions t
		       ON u.user_id = t.user_id
		      AND t.amount > 0
		      AND LOWER(TRIM(t.title)) = ?
		      {period}
		GROUP BY u.user_id, u.user_name
		HAVING COALESCE(SUM(t.amount), 0) > 0
		ORDER BY value DESC, u.user_id
		LIMIT ?`

	queryTopReferrers = `
		SELECT referrer_user_id AS user_id, COALESCE(MAX(referrer_name), '') AS user_name,
		       COUNT(*) AS value
		FROM {schema}.fact_referrals
		WHERE referrer_user_id IS NOT NULL AND referrer_user_id <> ''
		{period}
		GROUP BY referrer_user_id
		ORDER BY value DESC, user_id
		LIMIT ?`

	queryTopLeadGenerators = `
		SELECT generator_user_id AS user_id, COALESCE(MAX(generator_name), '') AS user_name,
		       COUNT(*) AS value
		FROM {schema}.fact_leads
		WHERE generator_user_id IS NOT NULL AND generator_user_id <> ''
		{period}
		GROUP BY generator_user_id
		ORDER BY value DESC, user_id
		LIMIT ?`

	queryTopWithdrawers = `
		SELECT user_id, COALESCE(MAX(user_name), '') AS user_name,
		       COUNT(*) AS value,
		       COUNT(*) AS count,
		       COALESCE(SUM(requested_amount), 0) AS amount
		FROM {schema}.fact_withdrawals
		WHERE user_id IS NOT NULL AND user_id <> ''
		{period}
		GROUP BY user_id
		ORDER BY value DESC, amount DESC, user_id
		LIMIT ?`

	// Daily activity
	queryDailyCoinActivity = `
		SELECT CAST(DATE(created_at) AS VARCHAR(10)) AS day,
		       COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS credits,
		       COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS debits
		FROM {schema}.fact_wallet_transactions
		WHERE DATE(created_at) BETWEEN ? AND ?
		GROUP BY DATE(created_at)`

	queryReferralsByDay = `
		SELECT CAST(DATE(created_at) AS VARCHAR(10)) AS day, COUNT(*) AS count
		FROM {schema}.fact_referrals
		WHERE DATE(created_at) BETWEEN ? AND ?
		GROUP BY DATE(created_at)`

	queryLeadsByDay = `
		SELECT CAST(DATE(created_at) AS VARCHAR(10)) AS day, COUNT(*) AS count
		FROM {schema}.fact_leads
		WHERE DATE(created_at) BETWEEN ? AND ?
		GROUP BY DATE(created_at)`

	// Referral program ROI
	queryReferralBonusCoins = `
		SELECT COALESCE(SUM(amount), 0)
		FROM {schema}.fact_wallet_transactions
		WHERE amount > 0 AND LOWER(TRIM(title)) IN ?`

	queryReferralConversions = `
		SELECT COUNT(*) AS total_referrals,
		       COUNT(CASE WHEN referred_user_id IS NOT NULL AND referred_user_id <> '' THEN 1 END) AS converted_referrals
		FROM {schema}.fact_referrals`

	queryReferredRevenue = `
		SELECT COALESCE(SUM(o.grand_total), 0)
		FROM {schema}.fact_orders o
		INNER JOIN (
			SELECT DISTINCT referred_user_id
			FROM {schema}.fact_referrals
			WHERE referred_user_id IS NOT NULL AND referred_user_id <> ''
		) r ON o.user_id = r.referred_user_id
		WHERE UPPER(COALESCE(o.order_status, '')) NOT IN ('CANCELLED', 'FAILED', 'REJECTED')
		  AND o.grand_total > 0`

	// Summary
	queryLoyaltySummary = `
		SELECT
			(SELECT COUNT(*) FROM {schema}.dim_loyalty_users) AS total_users,
			(SELECT COUNT(*) FROM {schema}.dim_loyalty_users WHERE remaining_coins > 0) AS active_users,
			(SELECT COALESCE(SUM(remaining_coins), 0) FROM {schema}.dim_loyalty_users) AS total_coins,
			(SELECT COUNT(*) FROM {schema}.fact_referrals) AS total_referrals,
			(SELECT COUNT(*) FROM {schema}.fact_leads) AS total_leads,
			(SELECT COUNT(*) FROM {schema}.fact_withdrawals WHERE LOWER(status) = 'pending') AS pending_withdrawals`

	// Paginated lists
	queryListUsers = `
		SELECT user_id, COALESCE(user_name, '') AS user_name, COALESCE(phone_number, '') AS phone_number,
		       COALESCE(email, '') AS email, COALESCE(tier_name, '') AS tier_name,
		       COALESCE(remaining_coins, 0) AS remaining_coins, COALESCE(total_earned, 0) AS total_earned,
		       COALESCE(total_used, 0) AS total_used,
		       COALESCE(CAST(signup_date AS VARCHAR(32)), '') AS signup_date
		FROM {schema}.dim_loyalty_users
		ORDER BY user_id
		LIMIT ? OFFSET ?`

	queryCountUsers = `
		SELECT COUNT(*) FROM {schema}.dim_loyalty_users`

	queryListTransactions = `
		SELECT transaction_id, COALESCE(user_id, '') AS user_id,
		       COALESCE(transaction_type, '') AS transaction_type, COALESCE(title, '') AS title,
		       COALESCE(amount, 0) AS amount, COALESCE(reason, '') AS reason,
		       COALESCE(status, '') AS status,
		       COALESCE(CAST(created_at AS VARCHAR(32)), '') AS created_at
		FROM {schema}.fact_wallet_transactions
		ORDER BY created_at DESC, transaction_id
		LIMIT ? OFFSET ?`

	queryCountTransactions = `
		SELECT COUNT(*) FROM {schema}.fact_wallet_transactions`
)
