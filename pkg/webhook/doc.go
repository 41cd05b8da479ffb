// Package webhook delivers signed JSON payloads to HTTP endpoints.
//
// Payloads are signed with HMAC-SHA256 over "timestamp.payload" and carried
// in X-Webhook-Signature, X-Webhook-Timestamp and X-Webhook-ID headers.
// Receivers verify with VerifySignature, which uses constant-time comparison
// and an optional timestamp window.
//
// Send performs a single delivery attempt; retry scheduling belongs to the
// caller.
package webhook
