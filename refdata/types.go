package refdata

// Product is the transient classification record fetched from the reference
// service. It is never stored; a nil Product means "unresolved" and callers
// apply defaults.
type Product struct {
	MaterialCode   string `json:"material_code"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	Category       string `json:"category"`
	Unit           string `json:"unit"`
	TrackInventory bool   `json:"track_inventory"`
	TrackSerial    bool   `json:"track_serial"`
	TrackBatch     bool   `json:"track_batch"`
}

// Department is branch metadata from the reference service: company/brand
// mapping plus the accounting sub-codes the invoice payload carries.
type Department struct {
	Code         string `json:"code"`
	CompanyCode  string `json:"company_code"`
	Brand        string `json:"brand"`
	AccountCode  string `json:"account_code"`
	CostCenter   string `json:"cost_center"`
}
