package model

// ResourceType declares the field sets of one resource. The CRUD engine is
// generic; everything resource-specific lives in these descriptors.
type ResourceType struct {
	// Name is the collection name, also used as the upload category.
	Name string

	// Required fields checked on create.
	Required []string

	// Allowed fields a plain update may touch. File fields are managed by
	// the attachment resolver and not listed here.
	Allowed []string

	// FileFields hold a single FileRef each.
	FileFields []string

	// ArrayFields hold lists of sub-records, each item possibly owning a
	// "file" FileRef and a registrationDate stamp.
	ArrayFields []string

	// TextFields participate in pushed-down keyword search.
	TextFields []string

	// References maps a field name to the resource its value points at,
	// used by relation expansion.
	References map[string]string
}

func (rt ResourceType) IsFileField(field string) bool {
	for _, f := range rt.FileFields {
		if f == field {
			return true
		}
	}
	return false
}

func (rt ResourceType) IsArrayField(field string) bool {
	for _, f := range rt.ArrayFields {
		if f == field {
			return true
		}
	}
	return false
}

var Projects = ResourceType{
	Name:     "projects",
	Required: []string{"name", "contracting_authority", "status"},
	Allowed: []string{
		"name", "contracting_authority", "status", "location", "entity_name",
		"start_date", "end_date", "estimated_budget",
		"water_date", "electricity_date", "irrigation_date", "drainage_date",
	},
	FileFields: []string{
		"site_receipt_file", "trust_approval_file", "estimated_budget_file",
		"aerial_view_file", "illustrative_view_file",
		"water_file", "electricity_file", "irrigation_file", "drainage_file",
	},
	ArrayFields: []string{"protocols", "project_financials"},
	TextFields:  []string{"name", "contracting_authority", "status", "location", "entity_name"},
}

var Companies = ResourceType{
	Name:     "companies",
	Required: []string{"company_name"},
	Allowed: []string{
		"company_name", "company_location", "company_engineers_name",
		"company_engineers_phone", "company_category", "allowed_limit",
		"specialization",
	},
	FileFields: []string{"company_file"},
	TextFields: []string{"company_name", "company_location", "company_category", "specialization"},
}

var Estimates = ResourceType{
	Name:     "estimates",
	Required: []string{"project", "name"},
	Allowed: []string{
		"project", "company", "name", "value", "area", "estimateType",
		"lengthOfLinearMeter", "cementPrice", "ironPrice",
		"estimateNumber", "estimateValueForManagement", "estimateValueForAuthority",
		"isCancelled", "isContracted", "contractValue",
		"completionReason", "completionProcedureName",
	},
	FileFields: []string{
		"battalionProofDocument", "quantitySurveyFile", "approvalCertificateFile",
		"shopDrawingsDWGFile", "shopDrawingsPDFFile", "offersAndPriceAnalisisFile",
		"cancellationFile", "contractNotificationFile",
	},
	TextFields: []string{"name", "estimateNumber", "estimateType", "completionReason"},
	References: map[string]string{"project": "projects", "company": "companies"},
}

var Contracts = ResourceType{
	Name:       "contracts",
	Required:   []string{"estimate"},
	Allowed:    []string{"estimate", "contract_value", "contract_cancel"},
	FileFields: []string{"contract_file"},
	TextFields: []string{"contract_cancel"},
	References: map[string]string{"estimate": "estimates"},
}

var MaterialAllocations = ResourceType{
	Name:     "material-allocations",
	Required: []string{"tafwidNumber"},
	Allowed: []string{
		"tafwidNumber", "factoryName", "tafwidQuantity", "supplyOrder",
		"shippingCompany", "mawqfAlTafwid",
	},
	FileFields:  []string{"tafwidFile"},
	ArrayFields: []string{"officers"},
	TextFields:  []string{"tafwidNumber", "factoryName", "shippingCompany", "mawqfAlTafwid"},
	References:  map[string]string{"supplyOrder": "supply-orders"},
}

var SupplyOrders = ResourceType{
	Name:     "supply-orders",
	Required: []string{"supplyNumber", "supplyName"},
	Allowed: []string{
		"supplyNumber", "supplyName", "supplyValue", "settlementValue",
		"status", "rawType", "customType", "numberOfItems", "projectId",
		"discountOnContracts",
	},
	FileFields:  []string{"settlementFile", "statusFile", "procurementFile", "supplyOrderFile"},
	ArrayFields: []string{"itemDetails"},
	TextFields:  []string{"supplyNumber", "supplyName", "status", "rawType", "customType"},
	References:  map[string]string{"projectId": "projects"},
}

var PaymentOrders = ResourceType{
	Name:     "payment-orders",
	Required: []string{"project", "paymentOrderNumber"},
	Allowed: []string{
		"project", "contractingAuthority", "financialAllocationDate",
		"financialAllocationValue", "correspondenceNumber", "paymentOrderDate",
		"paymentOrderValue", "paymentOrderNumber", "paymentOrderDetails",
	},
	FileFields: []string{"correspondenceFile", "paymentOrderFile"},
	TextFields: []string{"contractingAuthority", "correspondenceNumber", "paymentOrderNumber", "paymentOrderDetails"},
	References: map[string]string{"project": "projects"},
}

var Abstracts = ResourceType{
	Name:     "abstracts",
	Required: []string{"estimate", "type"},
	Allowed: []string{
		"estimate", "type", "number", "amount",
		"steelUnitPrice", "steelTotal", "cementUnitPrice", "cementTotal",
		"ceramicsQuantity", "marbleQuantity", "bricksQuantity", "bricksUnitPrice",
		"abstractComments",
	},
	FileFields: []string{"abstractFile", "attachmentFile"},
	TextFields: []string{"type", "abstractComments"},
	References: map[string]string{"estimate": "estimates"},
}

var Panels = ResourceType{
	Name:        "panels",
	Required:    []string{"project", "itemsCount"},
	Allowed:     []string{"project", "itemsCount"},
	ArrayFields: []string{"v1", "v2"},
	References:  map[string]string{"project": "projects"},
}

// Materials holds one collection for the raw-material policies; the cement
// and steel variants share it, discriminated by type and transactionType.
var Materials = ResourceType{
	Name:     "materials",
	Required: []string{"project", "type", "transactionType"},
	Allowed: []string{
		"project", "type", "transactionType",
		"policyNumber", "policyDate", "company", "quantity",
		"cementType", "cementGrade", "recievedName",
		"tafwid", "totalQuantity",
	},
	FileFields:  []string{"policyFile", "companyRecieveFile"},
	ArrayFields: []string{"items"},
	TextFields:  []string{"type", "transactionType", "cementType", "cementGrade", "recievedName"},
	References: map[string]string{
		"project": "projects",
		"company": "companies",
		"tafwid":  "material-allocations",
	},
}

var Confinements = ResourceType{
	Name:       "confinements",
	Required:   []string{"estimate"},
	Allowed:    []string{"estimate", "value"},
	FileFields: []string{"contractFileDWG", "contractFileExcel", "contractFilePdf"},
	References: map[string]string{"estimate": "estimates"},
}

var IncomingLetters = ResourceType{
	Name:        "incoming-letters",
	Required:    []string{"registrationNumber", "subject"},
	Allowed:     []string{"registrationNumber", "registrationType", "projectId", "subject"},
	ArrayFields: []string{"attachments"},
	TextFields:  []string{"registrationNumber", "registrationType", "subject"},
	References:  map[string]string{"projectId": "projects"},
}

var OutgoingLetters = ResourceType{
	Name:       "outgoing-letters",
	Required:   []string{"registrationNumber", "subject"},
	Allowed:    []string{"registrationNumber", "projectId", "subject"},
	FileFields: []string{"filePDF", "fileWord"},
	TextFields: []string{"registrationNumber", "subject"},
	References: map[string]string{"projectId": "projects"},
}

// Resources lists every registered resource type, in route order.
var Resources = []ResourceType{
	Projects,
	Companies,
	Estimates,
	Contracts,
	MaterialAllocations,
	Materials,
	SupplyOrders,
	PaymentOrders,
	Abstracts,
	Panels,
	Confinements,
	IncomingLetters,
	OutgoingLetters,
}

// ResourceByName looks a descriptor up by collection name.
func ResourceByName(name string) (ResourceType, bool) {
	for _, rt := range Resources {
		if rt.Name == name {
			return rt, true
		}
	}
	return ResourceType{}, false
}
