// Package config provides configuration management for sockgate.
//
// The config package handles:
//   - Loading settings from SOCKGATE_* environment variables
//   - Applying defaults for every setting
//   - Validating the combination before the server starts
//
// Settings:
//
//   - SOCKGATE_HOST / SOCKGATE_PORT: listen address (localhost:8080)
//   - SOCKGATE_COOKIE_NAME: identity cookie name (anon_session_ticket)
//   - SOCKGATE_COOKIE_PATH: cookie Path attribute (/)
//   - SOCKGATE_COOKIE_MAX_AGE: cookie lifetime, 0 for a session cookie (8760h)
//   - SOCKGATE_COOKIE_SECURE / SOCKGATE_COOKIE_HTTP_ONLY: cookie flags (false)
//   - SOCKGATE_WIRE_FORMAT: inbound frame format, json or text (json)
//   - SOCKGATE_ALLOWED_ORIGINS: comma separated origins allowed on /ws,
//     scheme://host or bare host; empty allows any origin
//   - SOCKGATE_PRUNE_INTERVAL / SOCKGATE_PRUNE_AFTER: stale ticket pruning,
//     disabled when either is zero (0s)
//   - SOCKGATE_DEBUG: development logging (false)
//   - NGROK_ENABLED / NGROK_AUTHTOKEN / NGROK_DOMAIN: optional public tunnel
//
// A .env file in the working directory is loaded first when present. Command
// line flags override whatever the environment provides.
package config
