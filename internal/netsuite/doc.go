// Package netsuite fetches sales orders through the SuiteQL REST endpoint.
//
// Requests are authenticated either with token-based authentication (OAuth
// 1.0a, HMAC-SHA256) signed by NewTBAHTTPClient, or with the OAuth
// 2.0 client credentials flow using a certificate-signed JWT assertion.
// Results are paged with limit/offset; any failed page fails the fetch.
package netsuite
