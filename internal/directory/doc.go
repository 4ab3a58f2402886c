// Package directory provides the city and university lookups used by the
// signup form.
//
// Cities come from an address suggestion service (Dadata) and always resolve
// to a usable list: any failure substitutes FallbackCities. Universities come
// from a static table keyed by exact city name; an empty result tells the form
// to accept free text instead of a selection.
package directory
