package openai

import (
	"encoding/json"
	"fmt"
)

// fieldSpec describes one destination column for the extraction prompt.
type fieldSpec struct {
	ColumnName     string `json:"column_name"`
	DataType       string `json:"data_type"`
	AllowNull      bool   `json:"allow_null"`
	AdditionalInfo string `json:"additional_info"`
}

// auctionFields lists every column extracted from a sheriff auction
// notice, with the hints the model needs to fill them correctly.
var auctionFields = []fieldSpec{
	{"case_number", "text", false, "The official case number for the auction, typically in the format '1234/2024'."},
	{"court_name", "text", true, "The name of the court where the case is filed (e.g., 'Gauteng Division, Pretoria')."},
	{"plaintiff", "text", true, "Name of the plaintiff or applicant in the case."},
	{"defendant", "text", true, "Name(s) of the defendant(s) or respondent(s) in the case."},
	{"auction_date", "date", true, "The date on which the auction will be held (e.g., '2025-01-28')."},
	{"auction_time", "time without time zone", true, "The time when the auction is scheduled to start (e.g., '11:00')."},
	{"sheriff_office", "text", true, "Name of the sheriff's office conducting the auction, as a proper noun naming the area, without words like acting, sheriff, office, or the high court."},
	{"sheriff_address", "text", true, "Physical address of the sheriff's office or auction venue."},
	{"erf_number", "text", true, "ERF number or property identifier related to the auctioned property."},
	{"township", "text", true, "The township or area where the property is located."},
	{"extension", "text", true, "Extension number or name, if applicable, for the property."},
	{"registration_division", "text", true, "Registration division for the property (e.g., 'IR', 'JR')."},
	{"province", "text", true, "Province where the property is located (e.g., 'Gauteng')."},
	{"stand_size", "bigint", true, "Size of the stand or property, usually in square meters."},
	{"deed_of_transfer_number", "text", true, "Official deed of transfer number for the property."},
	{"street_address", "text", true, "Street address of the property being auctioned, not the auctioneer's address: street number, road name, suburb, and city only."},
	{"zoning", "text", true, "Property zoning type (e.g., 'Residential', 'Commercial', 'Agricultural', 'Industrial')."},
	{"reserve_price", "bigint", true, "Minimum price required for the sale. '.' is the cents separator, so R10.57 is 10,57 not 1057."},
	{"bedrooms", "bigint", true, "Number of bedrooms in the property."},
	{"bathrooms", "bigint", true, "Number of bathrooms in the property."},
	{"kitchen", "text", true, "Description of kitchen facilities (e.g., 'Yes', 'Scullery', 'Open plan')."},
	{"scullery", "text", true, "Presence or description of a scullery (e.g., 'Yes', 'No')."},
	{"laundry", "text", true, "Presence or description of a laundry (e.g., 'Yes', 'No')."},
	{"living_areas", "bigint", true, "Number of living areas (lounges, dining rooms, etc.)."},
	{"garage", "text", true, "Garage details (e.g., 'Single', 'Double', 'Yes', 'None')."},
	{"carport", "text", true, "Carport details (e.g., 'Single', 'Double', 'Yes', 'None')."},
	{"other_structures", "text", true, "Any additional structures on the property (e.g., 'Flatlet', 'Shed', 'Office')."},
	{"registration_fee_required", "text", true, "Amount and description of the registration fee required to participate in the auction."},
	{"fica_requirements", "text", true, "FICA or legal compliance requirements for buyers."},
	{"attorney", "text", true, "Name of the attorney or firm representing the plaintiff."},
	{"attorney_contact", "text", true, "Contact details for the attorney (phone, fax, or email)."},
	{"attorney_reference", "text", true, "Attorney's internal reference number or code for the case."},
	{"notice_date", "date", true, "Date when the auction notice was published."},
	{"additional_fees", "text", true, "Explanation of any additional fees (e.g., 'attorney fees, sheriff fees, etc.')."},
	{"total_estimated_cost", "bigint", true, "Total estimated cost, including all fees and reserve price."},
	{"currency", "text", true, "Currency of all monetary values (e.g., 'ZAR')."},
	{"conditions_of_sale", "text", true, "The conditions of sale, usually following 'THE CONDITIONS OF SALE:' or 'Material conditions of sale:', including sheriff's fees and the deposit required. If nothing is found return 'See Auction Description'."},
}

// buildPrompt assembles the extraction prompt for one notice.
func buildPrompt(recordText string) string {
	spec, _ := json.MarshalIndent(auctionFields, "", "  ")
	return fmt.Sprintf(`You are a data extractor. From the following sheriff auction notice, extract the VALUES for these fields and return as a JSON array with ONE object.

Field specifications (extract the VALUES for each of these):
%s

IMPORTANT INSTRUCTIONS:
- Return a JSON array containing ONE object with the extracted VALUES
- Each key should be the column_name, each value should be the extracted data
- Do NOT return the field definitions, return the actual VALUES from the auction text
- Do NOT wrap the JSON in markdown code blocks
- Return ONLY the raw JSON array, starting with [ and ending with ]
- If a value is missing or unknown, return 'None' for text fields and 0 for number fields
- For missing dates use '2000-01-01' and missing times use '00:00:00'
- Do NOT include any explanatory text outside of the JSON

Auction text to extract from:
%s`, spec, recordText)
}
