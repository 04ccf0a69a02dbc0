package utils

import "strings"

// ParseStationList splits a comma separated station list, trimming blanks
// and dropping empty and repeated names while keeping the first-seen order.
func ParseStationList(value string) []string {
	return CleanStations(strings.Split(value, ","))
}

// CleanStations trims, drops empty names and de-duplicates, keeping order
func CleanStations(stations []string) []string {
	seen := make(map[string]struct{}, len(stations))
	cleaned := make([]string, 0, len(stations))
	for _, station := range stations {
		station = strings.TrimSpace(station)
		if station == "" {
			continue
		}
		if _, ok := seen[station]; ok {
			continue
		}
		seen[station] = struct{}{}
		cleaned = append(cleaned, station)
	}
	return cleaned
}
