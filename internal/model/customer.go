package model

import "strings"

// Canonical customer field names. They follow the Dutch column headers of
// the customer reference sheet.
const (
	FieldCompany         = "Bedrijf"
	FieldSector          = "Sector"
	FieldCoreActivity    = "Kernactiviteit"
	FieldProducts        = "Producten/Diensten"
	FieldSalesModel      = "Verkoopmodel"
	FieldServiceModel    = "Servicemodel"
	FieldCustomerProfile = "Klantprofiel"
	FieldDealSize        = "Dealsize"
	FieldCoreProcess     = "Kernproces"
)

// CanonicalFields lists every known customer field in sheet order.
var CanonicalFields = []string{
	FieldCompany,
	FieldSector,
	FieldCoreActivity,
	FieldProducts,
	FieldSalesModel,
	FieldServiceModel,
	FieldCustomerProfile,
	FieldDealSize,
	FieldCoreProcess,
}

// RequiredFields must be present as columns in every customer file.
var RequiredFields = []string{FieldCompany, FieldCoreActivity, FieldSector}

// CustomerRecord is one reference customer: field name → value.
type CustomerRecord map[string]string

// Get returns the trimmed value of field, or "" when absent.
func (c CustomerRecord) Get(field string) string {
	return strings.TrimSpace(c[field])
}

func (c CustomerRecord) Company() string         { return c.Get(FieldCompany) }
func (c CustomerRecord) Sector() string          { return c.Get(FieldSector) }
func (c CustomerRecord) CoreActivity() string    { return c.Get(FieldCoreActivity) }
func (c CustomerRecord) Products() string        { return c.Get(FieldProducts) }
func (c CustomerRecord) SalesModel() string      { return c.Get(FieldSalesModel) }
func (c CustomerRecord) ServiceModel() string    { return c.Get(FieldServiceModel) }
func (c CustomerRecord) CustomerProfile() string { return c.Get(FieldCustomerProfile) }
func (c CustomerRecord) DealSize() string        { return c.Get(FieldDealSize) }
func (c CustomerRecord) CoreProcess() string     { return c.Get(FieldCoreProcess) }

// Clone returns an independent copy of the record.
func (c CustomerRecord) Clone() CustomerRecord {
	out := make(CustomerRecord, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
