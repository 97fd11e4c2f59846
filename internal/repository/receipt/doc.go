// Package receipt persists a record of each installed package.
//
// The FileRepository stores one JSON document per package under the install
// root's var/receipts directory and exposes a Repository interface that the
// installer and the test command depend on.
package receipt
