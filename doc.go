// package ddsauth holds the data model shared by the DDS authentication plugins:
// participant GUIDs, configuration property bags, tokens and the errors they report.
//
// The PKI-DH plugin itself lives in p/pkidh.
package ddsauth
