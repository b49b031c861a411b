// Package services defines the [Resolver] interface and implements it with yt-dlp and an HTTP search proxy.
//
// # Resolver Interface
//
// A resolver turns the raw text of a play request into a [models.PlaylistItem].
// The request is classified once by [models.ParseLocator]: text starting with
// http:// or https:// is a direct locator, anything else is a search phrase.
// Resolvers hold no session state and are called outside every session lock.
//
// # yt-dlp Implementation
//
// [YTDLPResolver] runs yt-dlp through go-ytdlp and prints the webpage URL,
// title and duration of the first match. Searches use the "ytsearch1:" prefix.
//
// # Proxy Implementation
//
// [ProxyResolver] calls the search proxy through [APIService]:
//   - GET /api/search?q=<phrase>&limit=1
//   - GET /api/resolve?url=<locator>
//
// # Rate Limiting
//
// [NewResolver] wraps the chosen backend in a [RateLimitedResolver] so
// concurrent sessions share one lookup budget.
//
// # Error Handling
//
// Every failure wraps [shared.ErrResolution]. Causes stay reachable with errors.Is:
//   - [shared.ErrNoResults] : the search matched nothing
//   - [shared.ErrUnsupportedLocator] : the locator kind has no lookup
//   - [shared.ErrTimeout] : yt-dlp ran past its deadline
//   - [shared.ErrAPIRequest] : proxy request failed
//   - [shared.ErrServiceUnavailable] : proxy reported 503
package services
