// Package filter decides which discovered URLs are worth fetching.
//
// A Filter holds an ordered list of exclusion rules. A URL is checked only
// when no rule matches it. Rules cover non-HTTP schemes (mailto:, tel:,
// javascript:), in-page fragments, and third-party hosts that reliably
// reject automated clients (social networks, share intents, link shorteners).
//
// Rules are passed in at construction time, so callers can combine the
// built-in DefaultRules with site specific patterns from the configuration
// file without touching package state.
package filter
