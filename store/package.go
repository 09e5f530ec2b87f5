// Package store implements types that store part bodies too large to be kept in the database.
//
// Bodies are stored in their transfer encoding, one file per part, named by the part id.
package store
