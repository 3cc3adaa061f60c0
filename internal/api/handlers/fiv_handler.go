package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ginjaninja78/fiv-automation/internal/api/responses"
	"github.com/ginjaninja78/fiv-automation/internal/converter"
	"github.com/ginjaninja78/fiv-automation/internal/dates"
	"github.com/ginjaninja78/fiv-automation/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FIVHandler serves the FIV and settlement pipelines over HTTP.
type FIVHandler struct {
	service *converter.Service
}

// NewFIVHandler creates a new handler.
func NewFIVHandler(service *converter.Service) *FIVHandler {
	return &FIVHandler{service: service}
}

// Register mounts the handler's routes on group.
func (h *FIVHandler) Register(group *gin.RouterGroup) {
	group.POST("/fiv", h.HandleGenerateFIV)
	group.POST("/settlement/sheets", h.HandleListSheets)
	group.POST("/settlement/filter", h.HandleFilterSettlement)
}

// HandleGenerateFIV builds the FIV workbook from invoiceFile and referenceFile.
func (h *FIVHandler) HandleGenerateFIV(c *gin.Context) {
	invoice, ok := formDocument(c, "invoiceFile", "Invoice listing (.xlsx, .xls, .csv) not found or invalid")
	if !ok {
		return
	}
	reference, ok := formDocument(c, "referenceFile", "Reference document (.xlsx, .xls, .csv) not found or invalid")
	if !ok {
		return
	}

	result, err := h.service.GenerateFIV(invoice, reference)
	if err != nil {
		respondError(c, "Failed to generate FIV", err)
		return
	}

	c.Header("X-Run-Id", result.RunID)
	c.Header("X-Records", strconv.Itoa(result.Stats.RecordsEmitted))
	c.Header("X-Unresolved", strconv.Itoa(result.Stats.Unresolved))
	responses.Attachment(c, result.OutputFile, xlsxContentType, result.Output)
}

// HandleListSheets returns the candidate worksheets of a settlement file.
func (h *FIVHandler) HandleListSheets(c *gin.Context) {
	doc, ok := formDocument(c, "file", "Settlement file (.xlsx, .xls, .csv) not found or invalid")
	if !ok {
		return
	}

	sheets, err := h.service.ListCandidateSheets(doc)
	if err != nil {
		respondError(c, "Failed to read settlement file", err)
		return
	}
	responses.Success(c, gin.H{"sheets": sheets}, fmt.Sprintf("%d candidate worksheet(s)", len(sheets)))
}

// HandleFilterSettlement filters a settlement file by checkout date.
// Form fields: file, sheet (optional), start and end (YYYY-MM-DD).
func (h *FIVHandler) HandleFilterSettlement(c *gin.Context) {
	doc, ok := formDocument(c, "file", "Settlement file (.xlsx, .xls, .csv) not found or invalid")
	if !ok {
		return
	}

	start, err := dates.ParseISO(c.PostForm("start"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Invalid start date", err.Error())
		return
	}
	end, err := dates.ParseISO(c.PostForm("end"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Invalid end date", err.Error())
		return
	}

	result, err := h.service.FilterSettlement(doc, c.PostForm("sheet"), start, end)
	if err != nil {
		respondError(c, "Failed to filter settlement file", err)
		return
	}

	c.Header("X-Run-Id", result.RunID)
	c.Header("X-Sheet", result.SourceSheet)
	c.Header("X-Records", strconv.Itoa(result.Stats.RecordsEmitted))
	responses.Attachment(c, result.OutputFile, xlsxContentType, result.Output)
}

// formDocument reads one multipart file field. It writes the error
// response itself and returns false on failure.
func formDocument(c *gin.Context, field, missing string) (converter.Document, bool) {
	header, err := c.FormFile(field)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		responses.Error(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload exceeds %d MB", tooLarge.Limit>>20), err.Error())
		return converter.Document{}, false
	}
	if err != nil {
		responses.Error(c, http.StatusBadRequest, missing)
		return converter.Document{}, false
	}

	file, err := header.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, fmt.Sprintf("Could not open %s", field))
		return converter.Document{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, fmt.Sprintf("Could not read %s", field))
		return converter.Document{}, false
	}
	return converter.Document{Name: header.Filename, Data: data}, true
}

// respondError maps pipeline errors to status codes.
func respondError(c *gin.Context, message string, err error) {
	var ambiguous *types.AmbiguousSheetError
	switch {
	case errors.As(err, &ambiguous):
		responses.ErrorWithData(c, http.StatusConflict, gin.H{"sheets": ambiguous.Candidates},
			"Several worksheets qualify; choose one with the 'sheet' field", err.Error())
	case errors.Is(err, types.ErrNoValidSheet):
		responses.Error(c, http.StatusNotFound, message, err.Error())
	case errors.Is(err, types.ErrUnsupportedFormat):
		responses.Error(c, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, types.ErrHeaderNotFound),
		errors.Is(err, types.ErrMissingColumn),
		errors.Is(err, types.ErrDuplicateColumnName),
		errors.Is(err, types.ErrMalformedAmount),
		errors.Is(err, types.ErrInvalidDateRange):
		responses.Error(c, http.StatusUnprocessableEntity, message, err.Error())
	default:
		responses.Error(c, http.StatusInternalServerError, message, err.Error())
	}
}
