// Package report renders batch run results. Three formats are supported:
// plain text for the terminal, JSON for tooling, and Markdown for sharing.
// Every format always shows all four verdict categories, even when a
// category is empty, so an operator scanning a summary never has to wonder
// whether a zero was omitted or never counted.
package report
