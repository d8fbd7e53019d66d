package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"pim-service/internal/middleware"
	"pim-service/internal/models"
	"pim-service/internal/services"
)

// templateImportColumns defines the sheet layout for template definition
// imports: one row per attribute, grouped into sections by the section column.
var templateImportColumns = []struct {
	Name        string
	Description string
	Required    bool
	Example     string
}{
	{"section", "Section title the attribute belongs to", true, "General"},
	{"name", "Attribute name", true, "Product Title"},
	{"type", "Field type: Text, Number, Boolean, Date, Long Text, Rich Text, Dropdown", true, "Text"},
	{"required", "Whether the attribute is mandatory (true/false)", false, "true"},
	{"options", "Pipe-separated options, Dropdown only", false, "Red|Green|Blue"},
}

// ImportHandler imports view template definitions from CSV or Excel files.
type ImportHandler struct {
	svc *services.TemplateService
}

func NewImportHandler(svc *services.TemplateService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/view-templates/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	switch format {
	case "csv":
		h.generateCSVTemplate(c)
	case "xlsx":
		h.generateXLSXTemplate(c)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": templateImportColumns,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=view_template_import.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(templateImportColumns))
	for i, col := range templateImportColumns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attributes"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range templateImportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "View Template Import Instructions")
	f.SetCellValue("Instructions", "A3", "Each row defines one attribute. Rows sharing a section value are grouped into that section,")
	f.SetCellValue("Instructions", "A4", "in the order they first appear. Attribute order within a section follows row order.")
	f.SetCellValue("Instructions", "A5", "Dropdown attributes list their options pipe-separated, e.g. Red|Green|Blue.")

	f.SetCellValue("Instructions", "A7", "Column Definitions:")
	f.SetCellValue("Instructions", "A8", "Column")
	f.SetCellValue("Instructions", "B8", "Description")
	f.SetCellValue("Instructions", "C8", "Required")
	f.SetCellValue("Instructions", "D8", "Example")

	for i, col := range templateImportColumns {
		row := i + 9
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 70)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 30)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=view_template_import.xlsx")

	f.Write(c.Writer)
}

// ImportRowError reports one rejected row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult summarizes a template import.
type ImportResult struct {
	Success        bool                 `json:"success"`
	TotalRows      int                  `json:"totalRows"`
	ImportedRows   int                  `json:"importedRows"`
	SectionCount   int                  `json:"sectionCount"`
	AttributeCount int                  `json:"attributeCount"`
	Errors         []ImportRowError     `json:"errors,omitempty"`
	Template       *models.ViewTemplate `json:"template,omitempty"`
}

// ImportTemplate imports a view template definition from a CSV or Excel file
// POST /api/v1/view-templates/import
func (h *ImportHandler) ImportTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	templateName := c.DefaultPostForm("name", "")
	if templateName == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Template name is required",
				Field:   "name",
			},
		})
		return
	}
	description := c.DefaultPostForm("description", "")
	validateOnly := c.DefaultPostForm("validateOnly", "false") == "true"

	var rows []map[string]string
	var parseErr error
	filename := strings.ToLower(header.Filename)
	switch {
	case strings.HasSuffix(filename, ".csv"):
		rows, parseErr = h.parseCSV(file)
	case strings.HasSuffix(filename, ".xlsx"):
		rows, parseErr = h.parseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: "Only CSV and XLSX files are supported",
			},
		})
		return
	}
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "PARSE_ERROR",
				Message: parseErr.Error(),
			},
		})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "EMPTY_FILE",
				Message: "The file contains no data rows",
			},
		})
		return
	}

	payload, result := h.buildPayload(templateName, description, rows)

	if validateOnly || len(result.Errors) > 0 {
		result.Success = len(result.Errors) == 0
		c.JSON(http.StatusOK, result)
		return
	}

	template, err := h.svc.Create(c.Request.Context(), tenantID, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	result.Success = true
	result.Template = template
	c.JSON(http.StatusCreated, result)
}

// buildPayload groups attribute rows into sections by first appearance of the
// section title. Row order fixes both section order and attribute order.
func (h *ImportHandler) buildPayload(name, description string, rows []map[string]string) (*models.CreateTemplatePayload, *ImportResult) {
	result := &ImportResult{
		TotalRows: len(rows),
		Errors:    make([]ImportRowError, 0),
	}

	sectionIndex := make(map[string]int)
	var sections []models.CreateSectionPayload

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])

		sectionTitle := row["section"]
		attrName := row["name"]
		if sectionTitle == "" {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "section", Code: "REQUIRED", Message: "Section title is required",
			})
			continue
		}
		if attrName == "" {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "name", Code: "REQUIRED", Message: "Attribute name is required",
			})
			continue
		}

		fieldType := models.NormalizeFieldType(row["type"])
		required := strings.EqualFold(row["required"], "true")

		var options []string
		if row["options"] != "" {
			for _, opt := range strings.Split(row["options"], "|") {
				if trimmed := strings.TrimSpace(opt); trimmed != "" {
					options = append(options, trimmed)
				}
			}
		}
		if fieldType == models.FieldDropdown && options == nil {
			options = []string{}
		}
		if fieldType != models.FieldDropdown && options != nil {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "options", Code: "INVALID", Message: "Options are only allowed for Dropdown attributes",
			})
			continue
		}

		idx, ok := sectionIndex[strings.ToLower(sectionTitle)]
		if !ok {
			idx = len(sections)
			sectionIndex[strings.ToLower(sectionTitle)] = idx
			sections = append(sections, models.CreateSectionPayload{
				Title: sectionTitle,
				Order: idx,
			})
		}
		sections[idx].Attributes = append(sections[idx].Attributes, models.CreateAttributePayload{
			Name:     attrName,
			Type:     fieldType,
			Required: required,
			Order:    len(sections[idx].Attributes),
			Options:  options,
		})
		result.ImportedRows++
	}

	result.SectionCount = len(sections)
	result.AttributeCount = result.ImportedRows

	return &models.CreateTemplatePayload{
		Name:        name,
		Description: description,
		Sections:    sections,
	}, result
}

// parseCSV parses a CSV file into rows
func (h *ImportHandler) parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1) // Track row number for error reporting
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

// parseXLSX parses an Excel file into rows
func (h *ImportHandler) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Attributes") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2) // 1-indexed, +1 for header
		rows = append(rows, row)
	}

	return rows, nil
}
