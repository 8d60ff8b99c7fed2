package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ParsedReceiptText is the structured output of parsing one receipt's
// OCR text: the product lines in receipt order plus whatever totals and
// dates could be recognized.
type ParsedReceiptText struct {
	Lines []models.ReceiptLine
	Total *float64
	Date  *time.Time
}

// ReceiptParser turns raw OCR text into receipt lines. Lines carrying a
// printed UPC keep it as a decoded barcode for exact matching.
type ReceiptParser struct {
	barcodePattern  *regexp.Regexp
	pricePatterns   []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	datePatterns    []*regexp.Regexp
	totalPatterns   []*regexp.Regexp
}

// NewReceiptParser creates a new receipt parser
func NewReceiptParser() *ReceiptParser {
	return &ReceiptParser{
		// Commissary format: ITEM NAME UPC $X.XX F (UPC is 11-14 digits)
		barcodePattern: regexp.MustCompile(`^(.+?)\s+(\d{11,14})\s+\$?(\d{1,3}[.,]\d{2})\s*[FNT]?\s*$`),
		pricePatterns: []*regexp.Regexp{
			// QTY x ITEM @ PRICE. Tried first; the generic pattern below
			// would otherwise swallow the quantity token into the name.
			regexp.MustCompile(`^(\d+)\s*[xX@]\s*(.+?)\s+\$?(\d{1,3}[.,]\d{2})`),
			// ITEM NAME @ X.XX EA
			regexp.MustCompile(`^(.+?)\s+@\s*\$?(\d{1,3}[.,]\d{2})\s*(?:EA|EACH)?`),
			// ITEM NAME    $X.XX (price at end, optional tax flag)
			regexp.MustCompile(`^(.+?)\s+\$?(\d{1,3}[.,]\d{2})\s*[FNT]?\s*$`),
		},
		excludePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*(TAX|SUBTOTAL|SUB\s*TOTAL|TOTAL|GRAND\s*TOTAL|BALANCE|CHANGE|CASH|CREDIT|DEBIT|CARD|VISA|MASTERCARD|AMEX|DISCOVER|SAVINGS|DISCOUNT|COUPON|MEMBER|LOYALTY|POINTS|REWARD|THANK\s*YOU|HAVE\s*A|STORE\s*#|CASHIER|TRANS|REG|DATE|TIME|TEL|PHONE|ADDRESS|RECEIPT|RETURN|REFUND|VOID|SURCHARGE|SOLD\s*ITEMS?|PAID|PURCHASE)\b`),
			regexp.MustCompile(`^\s*[-=*]+\s*$`),
			regexp.MustCompile(`^\s*\d{2}[/-]\d{2}[/-]\d{2,4}\s*$`),
			regexp.MustCompile(`^\s*\d{1,2}:\d{2}\s*(AM|PM)?\s*$`),
			// Quantity/weight detail lines: "2 @ $2.79 EACH" or "2.96 lb @ $0.99 / lb"
			regexp.MustCompile(`^\s*\d+\.?\d*\s*(lb|oz|kg|g)?\s*@\s*\$?\d+\.\d{2}\s*(\/\s*(lb|oz|kg|g)|EACH|EA)?\s*$`),
		},
		datePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`),
			regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`),
		},
		totalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:TOTAL|GRAND\s*TOTAL|BALANCE\s*DUE|AMOUNT\s*DUE)\s*:?\s*\$?(\d+[.,]\d{2})`),
			regexp.MustCompile(`(?i)^\s*TOTAL\s+\$?(\d+[.,]\d{2})`),
		},
	}
}

// Parse extracts receipt lines, total and date from OCR text
func (p *ReceiptParser) Parse(ocrText string) (*ParsedReceiptText, error) {
	rawLines := strings.Split(ocrText, "\n")
	result := &ParsedReceiptText{
		Lines: []models.ReceiptLine{},
	}

	result.Date = p.extractDate(rawLines)
	result.Total = p.extractTotal(rawLines)

	lineNumber := 0
	for _, raw := range rawLines {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p.shouldExclude(raw) {
			continue
		}

		if line := p.parseLine(raw, lineNumber); line != nil {
			result.Lines = append(result.Lines, *line)
			lineNumber++
		}
	}

	return result, nil
}

// parseLine attempts to parse a single line into a receipt line
func (p *ReceiptParser) parseLine(raw string, lineNumber int) *models.ReceiptLine {
	cleaned := cleanOCRLine(raw)

	// Barcode-bearing lines first, so the UPC survives as a decoded code
	if matches := p.barcodePattern.FindStringSubmatch(cleaned); len(matches) == 4 {
		line := &models.ReceiptLine{
			RawText:    raw,
			Name:       strings.TrimSpace(matches[1]),
			LineNumber: lineNumber,
		}
		barcode := matches[2]
		line.Barcode = &barcode
		if price, err := parsePrice(matches[3]); err == nil {
			line.TotalPrice = &price
		}
		return line
	}

	for _, pattern := range p.pricePatterns {
		matches := pattern.FindStringSubmatch(cleaned)
		if len(matches) < 3 {
			continue
		}

		var name, priceStr string
		if len(matches) == 4 {
			// QTY, NAME, PRICE
			name = matches[2]
			priceStr = matches[3]
		} else {
			name = matches[1]
			priceStr = matches[2]
		}

		name = strings.TrimSpace(name)
		if name == "" || isNumeric(name) {
			return nil
		}

		line := &models.ReceiptLine{
			RawText:    raw,
			Name:       name,
			LineNumber: lineNumber,
		}
		if price, err := parsePrice(priceStr); err == nil {
			line.TotalPrice = &price
		}
		return line
	}

	// No price found; keep the line as name-only so text matching can
	// still classify it
	if len(cleaned) >= 3 && !isNumeric(cleaned) {
		return &models.ReceiptLine{
			RawText:    raw,
			Name:       cleaned,
			LineNumber: lineNumber,
		}
	}
	return nil
}

// shouldExclude reports whether the line is receipt noise
func (p *ReceiptParser) shouldExclude(line string) bool {
	for _, pattern := range p.excludePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// extractDate finds the first recognizable date in the receipt
func (p *ReceiptParser) extractDate(lines []string) *time.Time {
	for _, line := range lines {
		for _, pattern := range p.datePatterns {
			matches := pattern.FindStringSubmatch(line)
			if len(matches) != 4 {
				continue
			}
			if date := tryParseDate(matches[1], matches[2], matches[3]); date != nil {
				return date
			}
		}
	}
	return nil
}

// extractTotal finds the receipt total
func (p *ReceiptParser) extractTotal(lines []string) *float64 {
	for _, line := range lines {
		for _, pattern := range p.totalPatterns {
			matches := pattern.FindStringSubmatch(line)
			if len(matches) == 2 {
				if total, err := parsePrice(matches[1]); err == nil {
					return &total
				}
			}
		}
	}
	return nil
}

// cleanOCRLine fixes up common OCR artifacts before pattern matching
func cleanOCRLine(line string) string {
	line = strings.ReplaceAll(line, "|", "1")
	line = strings.Join(strings.Fields(line), " ")
	return strings.TrimSpace(line)
}

func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func tryParseDate(a, b, c string) *time.Time {
	// Four-digit leading group means YYYY-MM-DD
	if len(a) == 4 {
		if t, err := time.Parse("2006-1-2", a+"-"+b+"-"+c); err == nil {
			return &t
		}
		return nil
	}
	year := c
	if len(year) == 2 {
		year = "20" + year
	}
	if t, err := time.Parse("1-2-2006", a+"-"+b+"-"+year); err == nil {
		return &t
	}
	return nil
}
