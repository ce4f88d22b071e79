package schema

// Built-in CRM object types. Property names follow the CRM's lower-case
// internal naming.
var builtinEntities = []*EntityDescriptor{
	NewEntityDescriptor("contacts",
		[]string{
			"email", "firstname", "lastname", "phone", "mobilephone", "fax",
			"company", "website", "jobtitle", "salutation", "industry",
			"address", "city", "state", "zip", "country",
			"lifecyclestage", "hs_lead_status", "hubspot_owner_id", "date_of_birth",
		},
		map[string]string{
			"first_name":     "firstname",
			"given_name":     "firstname",
			"last_name":      "lastname",
			"surname":        "lastname",
			"family_name":    "lastname",
			"email_address":  "email",
			"EmailAddress":   "email",
			"mail":           "email",
			"phone_number":   "phone",
			"PhoneNumber":    "phone",
			"telephone":      "phone",
			"mobile":         "mobilephone",
			"mobile_phone":   "mobilephone",
			"cell":           "mobilephone",
			"company_name":   "company",
			"CompanyName":    "company",
			"organization":   "company",
			"job_title":      "jobtitle",
			"title":          "jobtitle",
			"street":         "address",
			"Street":         "address",
			"street_address": "address",
			"postal_code":    "zip",
			"PostalCode":     "zip",
			"zipcode":        "zip",
			"postcode":       "zip",
			"region":         "state",
			"owner_id":       "hubspot_owner_id",
			"lead_status":    "hs_lead_status",
			"birthdate":      "date_of_birth",
		},
		"email",
	),
	NewEntityDescriptor("companies",
		[]string{
			"name", "domain", "website", "phone", "industry", "description", "type",
			"address", "city", "state", "zip", "country",
			"numberofemployees", "annualrevenue", "lifecyclestage",
			"hubspot_owner_id", "linkedin_company_page",
		},
		map[string]string{
			"company_name":   "name",
			"CompanyName":    "name",
			"organization":   "name",
			"url":            "website",
			"web_site":       "website",
			"employees":      "numberofemployees",
			"employee_count": "numberofemployees",
			"revenue":        "annualrevenue",
			"annual_revenue": "annualrevenue",
			"postal_code":    "zip",
			"PostalCode":     "zip",
			"phone_number":   "phone",
			"street":         "address",
			"owner_id":       "hubspot_owner_id",
			"linkedin":       "linkedin_company_page",
			"linkedin_url":   "linkedin_company_page",
		},
		"domain",
	),
	NewEntityDescriptor("deals",
		[]string{
			"dealname", "amount", "dealstage", "pipeline", "closedate",
			"dealtype", "description", "hubspot_owner_id", "hs_priority",
		},
		map[string]string{
			"deal_name":  "dealname",
			"name":       "dealname",
			"deal_stage": "dealstage",
			"stage":      "dealstage",
			"close_date": "closedate",
			"CloseDate":  "closedate",
			"value":      "amount",
			"deal_type":  "dealtype",
			"owner_id":   "hubspot_owner_id",
			"priority":   "hs_priority",
		},
		"dealname",
	),
	NewEntityDescriptor("tickets",
		[]string{
			"subject", "content", "hs_pipeline", "hs_pipeline_stage",
			"hs_ticket_priority", "hs_ticket_category", "hubspot_owner_id", "source_type",
		},
		map[string]string{
			"title":       "subject",
			"description": "content",
			"body":        "content",
			"priority":    "hs_ticket_priority",
			"category":    "hs_ticket_category",
			"pipeline":    "hs_pipeline",
			"stage":       "hs_pipeline_stage",
			"status":      "hs_pipeline_stage",
			"owner_id":    "hubspot_owner_id",
			"source":      "source_type",
		},
		"subject",
	),
	NewEntityDescriptor("products",
		[]string{
			"name", "description", "price", "hs_sku",
			"hs_cost_of_goods_sold", "hs_recurring_billing_period",
		},
		map[string]string{
			"sku":          "hs_sku",
			"product_name": "name",
			"cost":         "hs_cost_of_goods_sold",
			"unit_price":   "price",
		},
		"hs_sku",
	),
}
