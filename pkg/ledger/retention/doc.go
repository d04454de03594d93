// Package retention prunes old ledger entries, either on demand or on a cron
// schedule.
//
// Common schedules:
//   - "0 3 * * *"    daily at 3 AM
//   - "0 */6 * * *"  every 6 hours
//   - "@hourly"      every hour
package retention
