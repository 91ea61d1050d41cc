// Package geocaching extracts typed entities out of geocaching.com
// pages. The site has no public API; everything here is screen
// scraping over an authenticated session and is exactly as fragile as
// the markup it matches. Each entity performs one network request on
// Fetch and resolves its fields lazily from the fetched document.
package geocaching

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("geoscrape/geocaching")
