// Package mail retrieves unread messages from IMAP mailboxes and delivers
// outgoing mail over SMTP.
//
// Mailboxes are named: a Sessions registry maps an account name to its
// connection settings and a Directory hands out a Receiver per account.
package mail
