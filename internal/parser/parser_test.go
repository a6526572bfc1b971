package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	hdfcBank   = domain.Account{ID: 1, Institution: domain.HDFC, Kind: domain.BankAccount}
	hdfcCard   = domain.Account{ID: 2, Institution: domain.HDFC, Kind: domain.CreditCard}
	iciciBank  = domain.Account{ID: 3, Institution: domain.ICICI, Kind: domain.BankAccount}
	iciciCard  = domain.Account{ID: 4, Institution: domain.ICICI, Kind: domain.CreditCard}
	sbiAccount = domain.Account{ID: 5, Institution: domain.SBI, Kind: domain.BankAccount}
)

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// workbook builds an in-memory xlsx whose first sheet holds rows.
func workbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &cells))
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func requireParseError(t *testing.T, err error, reason apperr.ParseReason) *apperr.ParseError {
	t.Helper()
	var pe *apperr.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, reason, pe.Reason)
	return pe
}

func TestPivotYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "01/01/49", want: 2049},
		{in: "01/01/50", want: 1950},
		{in: "01/01/99", want: 1999},
		{in: "01/01/00", want: 2000},
		{in: "01/01/2024", want: 2024},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDMY(tt.in, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Year())
		})
	}
}

func TestParseDMY_Invalid(t *testing.T) {
	for _, in := range []string{"2024-01-05", "31/02/2024", "aa/01/2024", "01/13/24", ""} {
		_, err := parseDMY(in, time.UTC)
		assert.Error(t, err, in)
	}
}

func TestParseDMYTime(t *testing.T) {
	got, err := parseDMYTime("05/01/2024 14:32:10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 5, 14, 32, 10, 0, time.UTC), got)

	_, err = parseDMYTime("05/01/2024 14:32", time.UTC)
	assert.Error(t, err)
}

func TestDebitOrCredit(t *testing.T) {
	tests := []struct {
		name       string
		debit      string
		credit     string
		wantAmount float64
		wantDir    domain.Direction
		wantErr    bool
	}{
		{name: "debit", debit: "499.00", credit: "0.00", wantAmount: 499, wantDir: domain.Debit},
		{name: "credit with blank debit", debit: "", credit: "1,250.75", wantAmount: 1250.75, wantDir: domain.Credit},
		{name: "debit wins", debit: "10", credit: "20", wantAmount: 10, wantDir: domain.Debit},
		{name: "both zero", debit: "0.00", credit: "0", wantErr: true},
		{name: "both blank", debit: " ", credit: "", wantErr: true},
		{name: "non numeric", debit: "n/a", credit: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, dir, err := debitOrCredit(tt.debit, tt.credit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, amount)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestParse_HDFCBankCSV(t *testing.T) {
	data := "Statement,of,account,for,period\n" +
		"Date,Narration,Value Dat,Debit Amount,Credit Amount,Chq/Ref Number,Closing Balance\n" +
		"01/04/24,UPI-NETFLIX-REF 1234,01/04/24,499.00,0.00,0000001,1000.00\n" +
		"\n" +
		"02/04/24,SALARY ACME,02/04/24,0.00,50000.00,0000002,51000.00\n"

	txns, err := New(nil).Parse(File{Name: "hdfc.csv", MediaType: MediaCSV, Data: []byte(data)}, hdfcBank)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.Equal(t, utc(2024, time.April, 1), first.Date)
	assert.Equal(t, 499.0, first.Amount)
	assert.Equal(t, domain.Debit, first.Direction)
	assert.Equal(t, "streaming_services", first.Category)
	assert.Equal(t, int64(1), first.AccountID)
	assert.Equal(t, identity.Hash(first.Key()), first.ID)

	second := txns[1]
	assert.Equal(t, domain.Credit, second.Direction)
	assert.Equal(t, 50000.0, second.Amount)
	assert.Equal(t, domain.Untagged, second.Category)
}

func TestParse_HDFCBankCSV_Errors(t *testing.T) {
	header := "Date,Narration,Value Dat,Debit Amount,Credit Amount\n"

	tests := []struct {
		name   string
		data   string
		reason apperr.ParseReason
		line   string
	}{
		{
			name:   "short line",
			data:   header + "01/04/24,COFFEE,01/04/24\n",
			reason: apperr.ReasonTooFewFields,
			line:   "01/04/24,COFFEE,01/04/24",
		},
		{
			name:   "bad date",
			data:   header + "2024-04-01,COFFEE,01/04/24,10.00,0.00\n",
			reason: apperr.ReasonBadDate,
			line:   "2024-04-01,COFFEE,01/04/24,10.00,0.00",
		},
		{
			name:   "missing description",
			data:   header + "01/04/24, ,01/04/24,10.00,0.00\n",
			reason: apperr.ReasonBadDescription,
		},
		{
			name:   "zero amounts",
			data:   header + "01/04/24,COFFEE,01/04/24,0.00,0.00\n",
			reason: apperr.ReasonBadAmount,
		},
		{
			name:   "no header",
			data:   "01/04/24,COFFEE,01/04/24,10.00,0.00\n",
			reason: apperr.ReasonHeaderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Parse(File{Name: "bad.csv", MediaType: MediaCSV, Data: []byte(tt.data)}, hdfcBank)
			pe := requireParseError(t, err, tt.reason)
			assert.Equal(t, "bad.csv", pe.File)
			if tt.line != "" {
				assert.Equal(t, tt.line, pe.Line)
			}
		})
	}
}

func TestParse_HeaderNotFoundIsDistinct(t *testing.T) {
	_, err := New(nil).Parse(File{Name: "empty.csv", MediaType: MediaCSV, Data: []byte("\n\n")}, hdfcBank)
	assert.True(t, errors.Is(err, apperr.ErrHeaderNotFound))
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))
}

func TestParse_HeaderOnlyIsEmpty(t *testing.T) {
	data := "Date,Narration,Value Dat,Debit Amount,Credit Amount\n"
	txns, err := New(nil).Parse(File{Name: "empty.csv", MediaType: MediaCSV, Data: []byte(data)}, hdfcBank)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestParse_HDFCBankSheet(t *testing.T) {
	data := workbook(t, [][]string{
		{"", "HDFC BANK Ltd."},
		{"", "Date", "Narration", "Chq./Ref.No.", "Value Dt", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"},
		{"", "********", "********", "********", "********", "********", "********", "********"},
		{"", "05/01/24", "NETFLIX SUBSCRIPTION", "0000", "05/01/24", "649.00", "", "10000.00"},
		{"", "06/01/24", "SALARY", "0000", "06/01/24", "", "50000.00", "60000.00"},
	})

	txns, err := New(nil).Parse(File{Name: "hdfc.xlsx", MediaType: MediaXLSX, Data: data}, hdfcBank)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, utc(2024, time.January, 5), txns[0].Date)
	assert.Equal(t, "NETFLIX SUBSCRIPTION", txns[0].Description)
	assert.Equal(t, 649.0, txns[0].Amount)
	assert.Equal(t, domain.Debit, txns[0].Direction)

	assert.Equal(t, domain.Credit, txns[1].Direction)
	assert.Equal(t, 50000.0, txns[1].Amount)
}

func TestParse_HDFCBankSheet_DelimitedFallback(t *testing.T) {
	data := "Date,Narration,Chq./Ref.No.,Value Dt,Withdrawal Amt.,Deposit Amt.,Closing Balance\n" +
		"05/01/24,RENT JANUARY,0000,05/01/24,25000.00,,1000.00\n"

	txns, err := New(nil).Parse(File{Name: "hdfc.xls", MediaType: MediaExcel, Data: []byte(data)}, hdfcBank)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "rent", txns[0].Category)
}

func TestParse_LegacyBinaryWorkbook(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)

	_, err := New(nil).Parse(File{Name: "old.xls", MediaType: MediaExcel, Data: data}, hdfcBank)
	requireParseError(t, err, apperr.ReasonUnreadable)
}

func TestParse_HDFCCard(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "current layout",
			data: "Transaction type~|~Primary / Addon Customer Name~|~DATE~|~Description~|~AMT~|~Debit / Credit~|~REWARDS\n" +
				"Domestic~|~JOHN DOE~|~05/01/2024 14:32:10~|~NETFLIX.COM MUMBAI~|~649.00~|~~|~6\n" +
				"International~|~JOHN DOE~|~07/01/2024~|~PAYMENT RECEIVED~|~1,200.50~|~Cr~|~\n" +
				"Opening Balance~|~0\n" +
				"Domestic~|~JOHN DOE~|~09/01/2024~|~AFTER TABLE~|~1.00~|~~|~0\n",
		},
		{
			name: "legacy layout",
			data: "Transaction type~Primary / Addon Customer Name~DATE~Description~Feature Reward Points~AMT~Debit / Credit\n" +
				"Domestic~JOHN DOE~05/01/2024 14:32:10~NETFLIX.COM MUMBAI~6~649.00~\n" +
				"International~JOHN DOE~07/01/2024~PAYMENT RECEIVED~0~1,200.50~Cr\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := New(nil).Parse(File{Name: "card.txt", MediaType: MediaText, Data: []byte(tt.data)}, hdfcCard)
			require.NoError(t, err)
			require.Len(t, txns, 2)

			assert.Equal(t, time.Date(2024, time.January, 5, 14, 32, 10, 0, time.UTC), txns[0].Date)
			assert.Equal(t, "NETFLIX.COM MUMBAI", txns[0].Description)
			assert.Equal(t, 649.0, txns[0].Amount)
			assert.Equal(t, domain.Debit, txns[0].Direction)
			assert.Equal(t, "streaming_services", txns[0].Category)

			assert.Equal(t, utc(2024, time.January, 7), txns[1].Date)
			assert.Equal(t, 1200.5, txns[1].Amount)
			assert.Equal(t, domain.Credit, txns[1].Direction)
		})
	}
}

func TestParse_HDFCCard_Errors(t *testing.T) {
	header := "Transaction type~|~Name~|~DATE~|~Description~|~AMT~|~Debit / Credit~|~REWARDS\n"

	tests := []struct {
		name   string
		row    string
		reason apperr.ParseReason
	}{
		{name: "too few fields", row: "Domestic~|~JOHN~|~05/01/2024~|~X~|~1.00", reason: apperr.ReasonTooFewFields},
		{name: "bad time", row: "Domestic~|~JOHN~|~05/01/2024 14:32~|~X~|~1.00~|~~|~0", reason: apperr.ReasonBadDate},
		{name: "bad amount", row: "Domestic~|~JOHN~|~05/01/2024~|~X~|~abc~|~~|~0", reason: apperr.ReasonBadAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Parse(File{Name: "card.txt", MediaType: MediaText, Data: []byte(header + tt.row + "\n")}, hdfcCard)
			pe := requireParseError(t, err, tt.reason)
			assert.Equal(t, tt.row, pe.Line)
		})
	}
}

func TestParse_ICICIBank(t *testing.T) {
	data := workbook(t, [][]string{
		{"", "", "DETAILED STATEMENT"},
		{"", "S No.", "Value Date", "Transaction Date", "Cheque Number", "Transaction Remarks", "Withdrawal Amount (INR )", "Deposit Amount (INR )", "Balance (INR )"},
		{"", "1", "01/02/2024", "01/02/2024", "-", "UPI/SWIGGY/REF123", "350.00", "0.00", "9650.00"},
		{"", "2", "03/02/2024", "03/02/2024", "-", "NEFT-ACME PAYROLL", "0.00", "75000.00", "84650.00"},
	})

	for _, account := range []domain.Account{iciciBank, sbiAccount} {
		t.Run(string(account.Institution), func(t *testing.T) {
			txns, err := New(nil).Parse(File{Name: "icici.xlsx", MediaType: MediaXLSX, Data: data}, account)
			require.NoError(t, err)
			require.Len(t, txns, 2)

			assert.Equal(t, utc(2024, time.February, 1), txns[0].Date)
			assert.Equal(t, "food_delivery", txns[0].Category)
			assert.Equal(t, domain.Debit, txns[0].Direction)
			assert.Equal(t, account.ID, txns[0].AccountID)

			assert.Equal(t, domain.Credit, txns[1].Direction)
			assert.Equal(t, 75000.0, txns[1].Amount)
		})
	}
}

func TestParse_ICICICard(t *testing.T) {
	header := []string{"Transaction Date", "Details", "Foreign Currency", "Reward Points", "Merchant", "Amount (INR)", "Reference Number", "Card"}

	data := workbook(t, [][]string{
		header,
		{"10/03/2024", "NETFLIX COM", "-", "0", "-", "649.00 Dr.", "74332", "XX1234"},
		{"12/03/2024", "PAYMENT RECEIVED", "-", "0", "-", "5,000.00 Cr.", "74333", "XX1234"},
	})

	txns, err := New(nil).Parse(File{Name: "card.xlsx", MediaType: MediaXLSX, Data: data}, iciciCard)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, domain.Debit, txns[0].Direction)
	assert.Equal(t, 649.0, txns[0].Amount)
	assert.Equal(t, domain.Credit, txns[1].Direction)
	assert.Equal(t, 5000.0, txns[1].Amount)

	bad := workbook(t, [][]string{
		header,
		{"10/03/2024", "NETFLIX COM", "-", "0", "-", "649.00", "74332", "XX1234"},
	})
	_, err = New(nil).Parse(File{Name: "card.xlsx", MediaType: MediaXLSX, Data: bad}, iciciCard)
	requireParseError(t, err, apperr.ReasonBadAmount)
}

func TestParse_Unsupported(t *testing.T) {
	binary := []byte{0x25, 0x50, 0x44, 0x46, 0xFF, 0xFE, 0x00, 0x80}

	_, err := New(nil).Parse(File{Name: "stmt.pdf", MediaType: "application/pdf", Data: binary}, hdfcBank)
	requireParseError(t, err, apperr.ReasonUnsupportedFile)

	_, err = New(nil).Parse(File{Name: "a.csv", MediaType: MediaCSV, Data: []byte("x")},
		domain.Account{Institution: "axis", Kind: domain.BankAccount})
	requireParseError(t, err, apperr.ReasonUnsupportedFormat)
}

func TestParse_ReimportYieldsSameIDs(t *testing.T) {
	data := []byte("Date,Narration,Value Dat,Debit Amount,Credit Amount\n01/04/24,COFFEE,01/04/24,120.00,0.00\n")
	p := New(nil)

	first, err := p.Parse(File{Name: "a.csv", Data: data}, hdfcBank)
	require.NoError(t, err)
	second, err := p.Parse(File{Name: "a-copy.csv", Data: data}, hdfcBank)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestWithLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	data := []byte("Date,Narration,Value Dat,Debit Amount,Credit Amount\n01/04/24,COFFEE,01/04/24,120.00,0.00\n")

	txns, err := New(nil, WithLocation(ist)).Parse(File{Name: "a.csv", MediaType: MediaCSV, Data: data}, hdfcBank)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, time.Date(2024, time.March, 31, 18, 30, 0, 0, time.UTC), txns[0].Date.UTC())
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name string
		file File
		want bool
	}{
		{name: "declared csv", file: File{MediaType: MediaCSV, Data: []byte{0xFF}}, want: true},
		{name: "declared xlsx", file: File{MediaType: MediaXLSX, Data: []byte{0xFF}}, want: true},
		{name: "undeclared ascii", file: File{MediaType: "application/octet-stream", Data: []byte("a~b~c")}, want: true},
		{name: "undeclared binary", file: File{MediaType: "application/octet-stream", Data: []byte{'a', 0x80}}, want: false},
		{name: "binary after sniff window", file: File{Data: append(make([]byte, sniffLen), 0xFF)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.file))
		})
	}
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, MediaCSV, DetectMediaType([]byte("a,b,c\n1,2,3\n4,5,6\n")))
	assert.Equal(t, MediaText, DetectMediaType([]byte("Transaction type~Name~DATE\n")))
	assert.Equal(t, "image/png", DetectMediaType([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")))
}
