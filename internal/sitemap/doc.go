// Package sitemap reads the URL list a site publishes at /sitemap.xml.
//
// The reader does not validate the XML. It extracts every <loc> element whose
// content is an absolute http(s) URL, in document order, duplicates included.
// Structural checks on the document (the <urlset> root, the minimum number of
// entries) belong to the audit package.
package sitemap
