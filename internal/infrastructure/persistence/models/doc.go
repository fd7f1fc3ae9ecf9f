// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain entities so the domain layer stays free
// of ORM tags; each model carries ToDomain/FromDomain mappers and repositories
// only ever read and write these types.
package models
