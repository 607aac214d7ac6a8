// Package models defines the entities held in the local store and the
// payload shapes exchanged with the server API.
package models

// Site is a serviced building/location. The client never edits sites:
// the collection is replaced wholesale on every catalog sync.
type Site struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	SiteType   string `json:"site_type"`
	AccessInfo string `json:"access_info"`
	Notes      string `json:"notes"`
}

// System is an installed system on a site (CCTV, fire alarm, access
// control, ...). Same replace-only lifecycle as Site.
type System struct {
	ID              int64  `json:"id"`
	SiteID          int64  `json:"site_id"`
	SystemType      string `json:"system_type"`
	SystemTypeLabel string `json:"system_type_label"`
	Name            string `json:"name"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	LocationInfo    string `json:"location_info"`
	AccessData      string `json:"access_data"`
	Procedures      string `json:"procedures"`
	Notes           string `json:"notes"`
}

// CatalogDump is the response of the catalog dump endpoint.
type CatalogDump struct {
	Sites   []Site   `json:"sites"`
	Systems []System `json:"systems"`
}
