// Package aptsearch is a Go client for the aptsearch HTTP API.
//
//	client, _ := aptsearch.New("http://localhost:8080", aptsearch.WithAPIKey(key))
//
//	prefs, _ := client.Preferences(ctx, "2br in the east village under 4k, dog friendly", nil)
//	page, _ := client.Search(ctx, aptsearch.SearchRequest{
//	    SearchFilters: prefs.Filters,
//	    Query:         "sunny loft with a modern kitchen",
//	})
//	for _, l := range page.Listings {
//	    if l.Details != nil {
//	        fmt.Println(l.ID, l.Details.Address, l.Details.Scores.NaturalLight)
//	    }
//	}
//
// Errors returned by the API match the exported sentinels with errors.Is and
// carry the HTTP status and code as *APIError.
package aptsearch
