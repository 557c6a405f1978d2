// Package api talks to the geoform backend.
//
// This package handles:
//   - Fetching the state, district and block option lists
//   - Fetching the public key used to encrypt password fields
//   - Submitting form values as multipart/form-data
//
// Client satisfies cascade.Fetcher, secure.KeyFetcher and submit.Sink, so the
// UI wires a single value into all three.
//
// Example usage:
//
//	client, err := api.NewClient("http://127.0.0.1:5000", api.WithTimeout(5*time.Second))
//	if err != nil {
//	    // handle error
//	}
//	states, err := client.Fetch(ctx, domain.LevelState, "")
package api
