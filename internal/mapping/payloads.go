package mapping

// PrivilegePayload is the body of an application privilege create.
type PrivilegePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
	Domain      string   `json:"domain"`
	Type        string   `json:"type"`
}

// RolePayload is the body of a role create.
type RolePayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Privileges  []string `json:"privileges"`
	Roles       []string `json:"roles"`
}

// UserPayload is the body of a user create.
type UserPayload struct {
	UserID       string   `json:"userId"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	EmailAddress string   `json:"emailAddress"`
	Password     string   `json:"password"`
	Status       string   `json:"status"`
	Roles        []string `json:"roles"`
}

// RepositoryPayload covers hosted, proxy and group repositories of every
// supported format; unused blocks are omitted.
type RepositoryPayload struct {
	Name          string         `json:"name"`
	Online        bool           `json:"online"`
	Storage       Storage        `json:"storage"`
	Proxy         *ProxySettings `json:"proxy,omitempty"`
	NegativeCache *NegativeCache `json:"negativeCache,omitempty"`
	HTTPClient    *HTTPClient    `json:"httpClient,omitempty"`
	Group         *GroupSettings `json:"group,omitempty"`

	Maven       *MavenAttributes       `json:"maven,omitempty"`
	NPM         *NPMAttributes         `json:"npm,omitempty"`
	Docker      *DockerAttributes      `json:"docker,omitempty"`
	DockerProxy *DockerProxyAttributes `json:"dockerProxy,omitempty"`
	NugetProxy  *NugetProxyAttributes  `json:"nugetProxy,omitempty"`
	PypiProxy   *PypiProxyAttributes   `json:"pypiProxy,omitempty"`
	Yum         *YumAttributes         `json:"yum,omitempty"`
	Apt         *AptAttributes         `json:"apt,omitempty"`
	AptSigning  *AptSigningAttributes  `json:"aptSigning,omitempty"`
}

type Storage struct {
	BlobStoreName               string `json:"blobStoreName"`
	StrictContentTypeValidation bool   `json:"strictContentTypeValidation"`
	WritePolicy                 string `json:"writePolicy,omitempty"`
}

type ProxySettings struct {
	RemoteURL      string `json:"remoteUrl"`
	ContentMaxAge  int    `json:"contentMaxAge"`
	MetadataMaxAge int    `json:"metadataMaxAge"`
}

type NegativeCache struct {
	Enabled    bool `json:"enabled"`
	TimeToLive int  `json:"timeToLive"`
}

type HTTPClient struct {
	Blocked   bool `json:"blocked"`
	AutoBlock bool `json:"autoBlock"`
}

type GroupSettings struct {
	MemberNames []string `json:"memberNames"`
}

type MavenAttributes struct {
	VersionPolicy string `json:"versionPolicy"`
	LayoutPolicy  string `json:"layoutPolicy"`
}

type NPMAttributes struct {
	RemoveQuarantined bool `json:"removeQuarantined"`
}

type DockerAttributes struct {
	V1Enabled      bool `json:"v1Enabled"`
	ForceBasicAuth bool `json:"forceBasicAuth"`
}

type DockerProxyAttributes struct {
	IndexType string `json:"indexType"`
}

type NugetProxyAttributes struct {
	QueryCacheItemMaxAge int `json:"queryCacheItemMaxAge"`
}

type PypiProxyAttributes struct {
	RemoveQuarantined bool `json:"removeQuarantined"`
}

type YumAttributes struct {
	RepodataDepth int `json:"repodataDepth"`
}

type AptAttributes struct {
	Distribution string `json:"distribution"`
}

type AptSigningAttributes struct {
	Keypair    string `json:"keypair"`
	Passphrase string `json:"passphrase"`
}
