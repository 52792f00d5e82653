// Package proxy is the client side of the caching proxy.
//
// [NewChatClient] builds the OpenAI-compatible client probes go through.
// [Client] covers the admin surface: [Client.Health] for the preflight gate,
// [Client.ClearCache] before a run and [Client.Metrics] for the proxy's own
// counters. Admin calls use a short timeout; chat calls do not.
package proxy
