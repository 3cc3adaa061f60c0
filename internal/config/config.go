// =============================================================================
// FIV Automation - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Everything the pipelines
// treat as business rules (rename map, alias table, literal FIV constants,
// settlement column names) lives here so a rule change is a YAML edit.
//
// LOAD ORDER:
//   1. YAML file (config.yaml); a missing file means "defaults only"
//   2. Environment overrides with the FIV_ prefix (e.g. FIV_OUTPUT_DIR,
//      FIV_SERVER_ADDR, FIV_LOG_LEVEL)
//   3. Defaults for anything still unset
//   4. Struct validation
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "FIV"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY AND NAMING SETTINGS
	// =========================================================================

	// OutputDir is where generated workbooks and issue logs are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// LogFormat is "json" for production output or "console" for humans.
	// Default: "console"
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=json console"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	Server ServerConfig `yaml:"server" envconfig:"SERVER"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// CSV applies to any document uploaded with a .csv extension.
	CSV CSVSettings `yaml:"csv" envconfig:"CSV"`

	// =========================================================================
	// PIPELINE RULES
	// =========================================================================

	FIV        FIVRules        `yaml:"fiv" ignored:"true"`
	Settlement SettlementRules `yaml:"settlement" ignored:"true"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"required"`

	// MaxUploadMB caps the request body size; larger uploads get 413.
	// It also sets how much of a multipart form is buffered in memory.
	// Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB" validate:"gte=1"`
}

// CSVSettings contains settings for parsing CSV documents.
type CSVSettings struct {
	// Delimiter separates fields.
	// Default: ","
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`

	// Encoding of the CSV bytes.
	// Valid values: "UTF-8", "Windows-1258", "Windows-1252", "ISO-8859-1"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=UTF-8 Windows-1258 Windows-1252 ISO-8859-1"`
}

// =============================================================================
// FIV RULES
// =============================================================================

// FIVRules configures the invoice-to-FIV pipeline.
type FIVRules struct {
	// HeaderMarker is the token whose presence marks the header row.
	HeaderMarker string `yaml:"header_marker" validate:"required"`

	// FootnotePattern matches the first cell of report-footnote rows.
	FootnotePattern string `yaml:"footnote_pattern" validate:"required"`

	// Renames maps source labels to canonical field names.
	Renames map[string]string `yaml:"renames" validate:"required,dive,keys,required,endkeys,required"`

	// TaxAliases are substrings identifying a tax-identifier column, in
	// priority order. The same list serves the invoice and the reference
	// document.
	TaxAliases []string `yaml:"tax_aliases" validate:"required,min=1,dive,required"`

	// ReferenceNameColumn and ReferenceAccountColumn label the reference
	// document's lookup columns.
	ReferenceNameColumn    string `yaml:"reference_name_column" validate:"required"`
	ReferenceAccountColumn string `yaml:"reference_account_column" validate:"required"`

	// OutputSheet names the generated worksheet.
	OutputSheet string `yaml:"output_sheet" validate:"required,max=31"`

	// OutputFileFormat is the generated file name. Placeholders:
	//   {uuid} {timestamp} {date}
	OutputFileFormat string `yaml:"output_file_format" validate:"required"`

	// Constants holds the literal business codes of every output row.
	Constants FIVConstants `yaml:"constants"`
}

// FIVConstants are the literal accounting codes written on every FIV row.
// They are domain configuration and must be reproduced verbatim.
type FIVConstants struct {
	CurrencyCode      string `yaml:"currency_code" validate:"required"`
	DimA              string `yaml:"dim_a"`
	DimC              string `yaml:"dim_c"`
	DimD              string `yaml:"dim_d"`
	DimF              string `yaml:"dim_f"`
	TaxGroupHeader    string `yaml:"tax_group_header"`
	PostingProfile    string `yaml:"posting_profile"`
	LineNum           int    `yaml:"line_num" validate:"gte=1"`
	Description       string `yaml:"description"`
	SalesQty          int    `yaml:"sales_qty" validate:"gte=1"`
	TaxGroupLine      string `yaml:"tax_group_line"`
	TaxItemGroup      string `yaml:"tax_item_group"`
	LineMainAccountID string `yaml:"line_main_account_id"`
	LineDimA          string `yaml:"line_dim_a"`
	LineDimC          string `yaml:"line_dim_c"`
	LineDimD          string `yaml:"line_dim_d"`
	LineDimF          string `yaml:"line_dim_f"`
	VATInvoiceForm    string `yaml:"vat_invoice_form"`
}

// =============================================================================
// SETTLEMENT RULES
// =============================================================================

// SettlementRules configures the settlement filter.
type SettlementRules struct {
	CheckoutColumn string `yaml:"checkout_column" validate:"required"`
	RevenueColumn  string `yaml:"revenue_column" validate:"required"`
	DeductedColumn string `yaml:"deducted_column" validate:"required"`

	// PlaceholderPattern matches synthetic column names dropped from output.
	PlaceholderPattern string `yaml:"placeholder_pattern" validate:"required"`

	OutputSheet string `yaml:"output_sheet" validate:"required,max=31"`

	// OutputFileFormat placeholders: {start} {end} (YYYYMMDD) plus the
	// general {uuid} {timestamp} {date}.
	OutputFileFormat string `yaml:"output_file_format" validate:"required"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration.
//
// PARAMETERS:
//   - configPath: Path to the YAML file. An empty path, or a path that does
//     not exist, yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed, an override is malformed, or
//     validation fails.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override the file.
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 32
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "UTF-8"
	}

	applyFIVDefaults(&config.FIV)
	applySettlementDefaults(&config.Settlement)
}

func applyFIVDefaults(r *FIVRules) {
	if r.HeaderMarker == "" {
		r.HeaderMarker = "STT"
	}
	if r.FootnotePattern == "" {
		r.FootnotePattern = `^\[\d+\]$`
	}
	if len(r.Renames) == 0 {
		r.Renames = map[string]string{
			"Tên người mua(Buyer Name)":                        "Buyer Name",
			"Ngày, tháng, năm phát hành":                       "ISSUE_DATE",
			"Doanh số bán chưa có thuế(Revenue excluding VAT)": "Revenue_ex_VAT",
			"Thuế GTGT(VAT amount)":                            "VAT_Amount",
			"Ký hiệu mẫu hóa đơn":                              "InvoiceSerial",
			"Số hóa đơn":                                       "InvoiceNumber",
		}
	}
	if len(r.TaxAliases) == 0 {
		r.TaxAliases = []string{"Mã số thuế", "MST", "CMND", "PASSPORT", "Tax code"}
	}
	if r.ReferenceNameColumn == "" {
		r.ReferenceNameColumn = "Name"
	}
	if r.ReferenceAccountColumn == "" {
		r.ReferenceAccountColumn = "Customer account"
	}
	if r.OutputSheet == "" {
		r.OutputSheet = "FIV"
	}
	if r.OutputFileFormat == "" {
		r.OutputFileFormat = "Completed_FIV.xlsx"
	}

	c := &r.Constants
	setDefault(&c.CurrencyCode, "VND")
	setDefault(&c.DimA, "TX")
	setDefault(&c.DimC, "0000")
	setDefault(&c.DimD, "00")
	setDefault(&c.DimF, "0000")
	setDefault(&c.TaxGroupHeader, "OU")
	setDefault(&c.PostingProfile, "131103")
	setDefault(&c.Description, "Doanh thu dịch vụ spa")
	setDefault(&c.TaxGroupLine, "OU")
	setDefault(&c.TaxItemGroup, "10%")
	setDefault(&c.LineMainAccountID, "511301")
	setDefault(&c.LineDimA, "TX")
	setDefault(&c.LineDimC, "5301")
	setDefault(&c.LineDimD, "00")
	setDefault(&c.LineDimF, "0000")
	if c.LineNum == 0 {
		c.LineNum = 1
	}
	if c.SalesQty == 0 {
		c.SalesQty = 1
	}
	// VATInvoiceForm is intentionally blank by default.
}

func applySettlementDefaults(r *SettlementRules) {
	setDefault(&r.CheckoutColumn, "Ngày trả phòng")
	setDefault(&r.RevenueColumn, "Doanh thu thực")
	setDefault(&r.DeductedColumn, "Số tiền bị trừ")
	setDefault(&r.PlaceholderPattern, "^Unnamed")
	setDefault(&r.OutputSheet, "Agoda")
	setDefault(&r.OutputFileFormat, "Agoda_processed_{start}_{end}.xlsx")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// validateMainConfig validates the configuration struct tags and makes
// sure the output directory exists.
func validateMainConfig(config *MainConfig) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return err
	}

	if _, err := os.Stat(config.OutputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", config.OutputDir, err)
		}
	}

	return nil
}
