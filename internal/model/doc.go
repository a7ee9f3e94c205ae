// Package model defines the core data structures used throughout
// bookfetch.
//
// # Book
//
// Book represents one acquisition target with its ordered page
// manifest and provenance metadata:
//
//	book, err := resolver.Resolve(ctx, "https://archive.org/details/someid")
//	fmt.Println(book.Title, book.PageCount)
//
// Books are immutable after resolution; page order is carried only by
// the PageURIs slice.
//
// # LoanGrant
//
// LoanGrant is a time-boxed access window for one book, issued by the
// loan protocol. A grant without a token means the content was never
// gated.
//
// # DownloadConfig
//
// DownloadConfig holds the validated, immutable parameters of one run:
//
//	cfg, err := model.NewDownloadConfig(3, 50, "downloads", model.FormatPDF, false, false)
//
// Resolution is restricted to [0, 10] and Workers to [1, 200].
package model
