// Package rentnotice generates rent increase notices from rental contracts.
//
// # Quick Start
//
// Create a generator, generate a notice, and close when done:
//
//	gen, err := rentnotice.NewGenerator()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gen.Close()
//
//	result, err := gen.Generate(ctx, rentnotice.Request{
//	    Signees:         []string{"Alice Landlord", "Bob Tenant"},
//	    Address:         "Main St 1",
//	    TransactionID:   "ABC123",
//	    CurrentRent:     "10000",
//	    NewRent:         "12000",
//	    ApplicationDate: "2024-01-01",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.DocxPath, result.PDFPath)
//
// Both artifacts are deleted when result.ExpiresAt passes (five minutes by
// default). GenerateFromPDF reads the contract fields from an uploaded PDF
// instead; fields it cannot find become "N/A" and are listed in
// result.Warnings.
//
// # Generation Pipeline
//
//  1. Field extraction from the contract's page text (GenerateFromPDF only)
//  2. Placeholder resolution: rents, service fee, dates, duration clauses,
//     one line per party, and the optional English free text
//  3. Template rendering: every token of the DOCX template is substituted,
//     party and signature lines are set in bold, and one typeface is forced
//  4. Conversion: DOCX to Markdown, Markdown to HTML via Goldmark, CSS with
//     the embedded typeface, then PDF via headless Chrome (go-rod)
//  5. Expiry: one deletion per artifact is armed
//
// # Configuration
//
//	gen, err := rentnotice.NewGenerator(
//	    rentnotice.WithFont("Times New Roman", "/srv/fonts/times.ttf"),
//	    rentnotice.WithFeeRate(decimal.RequireFromString("0.0495")),
//	    rentnotice.WithTranslator(translator),
//	    rentnotice.WithOutputManager(manager),
//	)
//
// # Errors
//
// Errors match the sentinels of errors.go with errors.Is. Request problems
// wrap ErrValidation and carry a *FieldError; rendering and conversion
// failures wrap ErrRender and ErrConversion.
package rentnotice
