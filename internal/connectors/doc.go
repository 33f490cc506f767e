// Package connectors provides implementations of the RemoteSource
// interface for the supported deck sources. Each connector knows how
// to list and fetch PPTX decks from one source type (SharePoint
// document libraries via the Microsoft Graph API, or a local
// filesystem tree).
package connectors
