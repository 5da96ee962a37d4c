// Package registry is the local identifier record store and account directory.
//
// Identifiers are stored with their raw internal metadata and harvested in
// lexicographic order per owner with an exclusive cursor. Users and groups
// back the download authorization policy and the owner lookups the request
// encoder performs.
package registry
