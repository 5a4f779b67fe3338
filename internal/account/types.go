package account

// Account is one wallet profile and the settings of its node.
type Account struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Network string `json:"network"`

	// Datapath is the node storage directory, relative to the node data
	// root. Empty means the account name is used.
	Datapath string `json:"datapath,omitempty"`

	RPCConnectionURL     string `json:"rpc_connection_url"`
	NodeURL              string `json:"node_url"`
	IndexerURL           string `json:"indexer_url"`
	ProxyEndpoint        string `json:"proxy_endpoint"`
	DefaultLSPURL        string `json:"default_lsp_url"`
	MakerURLs            string `json:"maker_urls"`
	DefaultMakerURL      string `json:"default_maker_url"`
	DaemonListeningPort  string `json:"daemon_listening_port"`
	LDKPeerListeningPort string `json:"ldk_peer_listening_port"`

	// BearerToken authenticates against a remote node. Nil for local nodes.
	BearerToken *string `json:"bearer_token,omitempty"`

	// HasMnemonic reports whether an encrypted mnemonic is stored.
	// The ciphertext itself never leaves the repository in an Account.
	HasMnemonic bool `json:"has_mnemonic"`
}

// EncryptedMnemonic is the hex-encoded ciphertext triple stored per account.
type EncryptedMnemonic struct {
	Ciphertext string
	Salt       string
	Nonce      string
}
