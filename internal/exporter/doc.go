// Package exporter writes aggregated series to disk or to a response body.
//
// Three encodings are supported:
//
//	json  the [{"date": ..., "value": ...}] array chart front ends consume
//	csv   "date,value" rows with a UTF-8 BOM so spreadsheet tools detect the encoding
//	xlsx  an Excel workbook with a single "Series" sheet
//
// JSONWriter also produces the "<input basename>.json" side file that the
// aggregate command leaves next to the caller.
package exporter
