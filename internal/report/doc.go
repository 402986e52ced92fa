// Package report renders inventory reports for people: aligned text for the
// terminal and an .xlsx workbook for the maintenance office.
//
// Both renderings take the structures returned by the inventory
// orchestrator and never touch the database themselves.
package report
