package entity

// Account is a custodial account managed by the wallet service.
type Account struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
