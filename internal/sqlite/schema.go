// Package sqlite implements the local database manager: one SQLite table per
// entity kind, secondary indexes on extracted columns, additive schema
// migrations, and the reset/restore cycle backed by the fallback slot.
package sqlite

// Version 1 DDL: one table per entity kind. Each row keeps the full record
// JSON in body; the other columns are copies of indexed fields.
const (
	createOfficialSurveys = `CREATE TABLE official_surveys (
    id TEXT PRIMARY KEY,
    department TEXT NOT NULL,
    created_at TEXT NOT NULL,
    body TEXT NOT NULL
);`

	createElderlySurveys = `CREATE TABLE elderly_surveys (
    id TEXT PRIMARY KEY,
    organization TEXT NOT NULL,
    created_at TEXT NOT NULL,
    residence TEXT NOT NULL,
    body TEXT NOT NULL
);`

	createInventoryDistributions = `CREATE TABLE inventory_distributions (
    id TEXT PRIMARY KEY,
    organization TEXT NOT NULL,
    date TEXT NOT NULL,
    body TEXT NOT NULL
);`

	createInventorySummary = `CREATE TABLE inventory_summary (
    id TEXT PRIMARY KEY CHECK (id = 'current'),
    body TEXT NOT NULL
);`

	createOrganizations = `CREATE TABLE organizations (
    id TEXT PRIMARY KEY,
    region TEXT NOT NULL,
    type TEXT NOT NULL,
    body TEXT NOT NULL
);`

	createDocuments = `CREATE TABLE documents (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    upload_date TEXT NOT NULL,
    uploader TEXT NOT NULL,
    body TEXT NOT NULL
);`
)

// Version 1 index DDL.
const (
	idxOfficialSurveysDepartment  = `CREATE INDEX idx_official_surveys_department ON official_surveys(department);`
	idxOfficialSurveysCreatedAt   = `CREATE INDEX idx_official_surveys_created_at ON official_surveys(created_at);`
	idxElderlySurveysOrganization = `CREATE INDEX idx_elderly_surveys_organization ON elderly_surveys(organization);`
	idxElderlySurveysCreatedAt    = `CREATE INDEX idx_elderly_surveys_created_at ON elderly_surveys(created_at);`
	idxElderlySurveysResidence    = `CREATE INDEX idx_elderly_surveys_residence ON elderly_surveys(residence);`
	idxDistributionsOrganization  = `CREATE INDEX idx_inventory_distributions_organization ON inventory_distributions(organization);`
	idxDistributionsDate          = `CREATE INDEX idx_inventory_distributions_date ON inventory_distributions(date);`
	idxOrganizationsRegion        = `CREATE INDEX idx_organizations_region ON organizations(region);`
	idxOrganizationsType          = `CREATE INDEX idx_organizations_type ON organizations(type);`
	idxDocumentsCategory          = `CREATE INDEX idx_documents_category ON documents(category);`
	idxDocumentsUploadDate        = `CREATE INDEX idx_documents_upload_date ON documents(upload_date);`
	idxDocumentsUploader          = `CREATE INDEX idx_documents_uploader ON documents(uploader);`
)

// Version 2 DDL: document category reference table.
const (
	createDocumentCategories = `CREATE TABLE document_categories (
    name TEXT PRIMARY KEY,
    ordinal INTEGER NOT NULL,
    created_at TEXT NOT NULL
);`
)

// createSchemaVersion records applied migrations. It is created outside the
// migration list because migrate reads it before anything else.
const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL
);`

// recordTableDDL lists the version 1 CREATE TABLE statements.
var recordTableDDL = []string{
	createOfficialSurveys,
	createElderlySurveys,
	createInventoryDistributions,
	createInventorySummary,
	createOrganizations,
	createDocuments,
}

// recordIndexDDL lists the version 1 CREATE INDEX statements.
var recordIndexDDL = []string{
	idxOfficialSurveysDepartment,
	idxOfficialSurveysCreatedAt,
	idxElderlySurveysOrganization,
	idxElderlySurveysCreatedAt,
	idxElderlySurveysResidence,
	idxDistributionsOrganization,
	idxDistributionsDate,
	idxOrganizationsRegion,
	idxOrganizationsType,
	idxDocumentsCategory,
	idxDocumentsUploadDate,
	idxDocumentsUploader,
}
