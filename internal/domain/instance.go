package domain

// Engine identifies the database engine behind an instance.
type Engine string

// DataSourceType distinguishes admin and read-only connections.
type DataSourceType string

const (
	DataSourceAdmin    DataSourceType = "ADMIN"
	DataSourceReadOnly DataSourceType = "READ_ONLY"
)

// DataSource is a connection configuration attached to an instance.
type DataSource struct {
	ID       string         `json:"id"`
	Type     DataSourceType `json:"type"`
	Username string         `json:"username,omitempty"`
	Password string         `json:"password,omitempty"`
	Host     string         `json:"host,omitempty"`
	Port     string         `json:"port,omitempty"`
	Database string         `json:"database,omitempty"`
}

// Instance is a database server registered in the workspace.
// Name format: "instances/{instance}".
type Instance struct {
	Name        string       `json:"name"`
	UID         string       `json:"uid"`
	Title       string       `json:"title"`
	Engine      Engine       `json:"engine"`
	Environment string       `json:"environment"`
	State       State        `json:"state"`
	Activation  bool         `json:"activation"`
	ExternalURL string       `json:"externalLink,omitempty"`
	DataSources []DataSource `json:"dataSources,omitempty"`
}

// ComposedInstance is an instance with its environment resolved.
type ComposedInstance struct {
	Instance
	EnvironmentEntity *Environment `json:"environmentEntity"`
}

// Environment groups instances by deployment stage.
// Name format: "environments/{environment}".
type Environment struct {
	Name  string `json:"name"`
	UID   string `json:"uid"`
	Title string `json:"title"`
	Order int    `json:"order"`
	State State  `json:"state"`
	Tier  string `json:"tier,omitempty"`
}

// CreateInstanceRequest is the request body for creating an instance.
type CreateInstanceRequest struct {
	Instance   Instance `json:"instance"`
	InstanceID string   `json:"instanceId"`
}

// UpdateInstanceRequest is the request body for updating an instance.
type UpdateInstanceRequest struct {
	Instance   Instance `json:"instance"`
	UpdateMask []string `json:"updateMask"`
}

// DataSourceRequest is the request body for data source mutations.
type DataSourceRequest struct {
	DataSource DataSource `json:"dataSource"`
	UpdateMask []string   `json:"updateMask,omitempty"`
}

// BatchSyncRequest lists the instances to sync in one call.
type BatchSyncRequest struct {
	Names []string `json:"names"`
}
