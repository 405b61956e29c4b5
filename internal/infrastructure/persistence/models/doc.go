// Package models contains the GORM models of the run ledger.
package models
