// Package models contains the GORM persistence models of the unified tables.
// Domain types stay free of ORM tags; ToDomain / FromDomain convert between them.
//
// Every unified table carries a surrogate record id plus a unique index on the
// business key and source_file_name, which is the conflict target of upserts.
package models
