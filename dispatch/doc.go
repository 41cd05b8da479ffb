// Package dispatch routes notifications to channel senders.
//
// A Sender performs one delivery attempt over one transport (email, SMS,
// push, in-app, webhook) and returns the provider's reference for the
// delivery. The Dispatcher looks up the sender for the notification's
// channel, bounds the attempt with a timeout and converts panics and
// missing-channel cases into failed Results, so the lifecycle engine has a
// single code path for retry accounting.
//
// Recipient addresses travel in the notification's metadata: "email",
// "phone", "device_token" and "webhook_url" for the respective channels.
package dispatch
