// Package account stores wallet accounts and tracks which one the UI has
// selected.
//
// Each account owns one node data directory (its datapath, resolved under
// the node data root) and optionally an encrypted wallet mnemonic. Accounts
// are identified by their unique name; the numeric ID is used only as the
// channel order foreign key.
package account
