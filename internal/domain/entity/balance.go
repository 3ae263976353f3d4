package entity

// AccountBalance is the balance of one token held by a custodial account.
type AccountBalance struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}
