// Package validation checks instance and data source input before it reaches the backend.
package validation

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bcnelson/console-cache/internal/domain"
)

// maxResourceIDLength bounds user-chosen resource ids.
const maxResourceIDLength = 63

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

func isNum(b byte) bool { return b >= '0' && b <= '9' }

// ValidateResourceID validates a user-chosen resource id.
// Ids start with a lowercase letter and contain only lowercase letters, numbers, or hyphens.
func ValidateResourceID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s id must not be empty", kind)
	}
	if len(id) > maxResourceIDLength {
		return fmt.Errorf("%s id must be at most %d characters", kind, maxResourceIDLength)
	}
	if !isLower(id[0]) {
		return fmt.Errorf("%s id must start with a lowercase letter", kind)
	}
	if id[len(id)-1] == '-' {
		return fmt.Errorf("%s id must not end with a hyphen", kind)
	}
	for _, b := range []byte(id) {
		if !isLower(b) && !isNum(b) && b != '-' {
			return fmt.Errorf("%s ids can only contain lowercase letters, numbers, or hyphens", kind)
		}
	}
	return nil
}

// ValidateEnvironmentName validates an optional environment reference.
func ValidateEnvironmentName(name string) error {
	if name == "" {
		return nil
	}
	id, ok := strings.CutPrefix(name, "environments/")
	if !ok {
		return fmt.Errorf("environment must start with 'environments/'")
	}
	return ValidateResourceID("environment", id)
}

// ValidateHost validates a data source host: a hostname, an IP address, or a unix socket path.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if strings.HasPrefix(host, "/") || net.ParseIP(host) != nil {
		return nil
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return fmt.Errorf("host %q has an empty label", host)
		}
		for _, b := range []byte(strings.ToLower(label)) {
			if !isLower(b) && !isNum(b) && b != '-' && b != '_' {
				return fmt.Errorf("host %q contains an invalid character", host)
			}
		}
	}
	return nil
}

// ValidatePort validates an optional TCP port.
func ValidatePort(port string) error {
	if port == "" {
		return nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

// ValidateDataSource validates a data source and reports every problem found.
func ValidateDataSource(ds domain.DataSource) ValidationErrors {
	var errs ValidationErrors
	if ds.ID == "" {
		errs.Add("dataSource.id", ds.ID, "id must not be empty")
	}
	switch ds.Type {
	case domain.DataSourceAdmin, domain.DataSourceReadOnly:
	default:
		errs.Add("dataSource.type", string(ds.Type), "type must be ADMIN or READ_ONLY")
	}
	if err := ValidateHost(ds.Host); err != nil {
		errs.Add("dataSource.host", ds.Host, err.Error())
	}
	if err := ValidatePort(ds.Port); err != nil {
		errs.Add("dataSource.port", ds.Port, err.Error())
	}
	return errs
}

// ValidateCreateInstance validates a create request. The instance needs a title, an
// engine and exactly one admin data source.
func ValidateCreateInstance(req *domain.CreateInstanceRequest) ValidationErrors {
	var errs ValidationErrors
	if err := ValidateResourceID("instance", req.InstanceID); err != nil {
		errs.Add("instanceId", req.InstanceID, err.Error())
	}
	ins := req.Instance
	if strings.TrimSpace(ins.Title) == "" {
		errs.Add("instance.title", ins.Title, "title must not be empty")
	}
	if ins.Engine == "" {
		errs.Add("instance.engine", "", "engine must not be empty")
	}
	if err := ValidateEnvironmentName(ins.Environment); err != nil {
		errs.Add("instance.environment", ins.Environment, err.Error())
	}

	admins := 0
	for _, ds := range ins.DataSources {
		if ds.Type == domain.DataSourceAdmin {
			admins++
		}
		errs = append(errs, ValidateDataSource(ds)...)
	}
	if admins != 1 {
		errs.Add("instance.dataSources", strconv.Itoa(admins), "exactly one ADMIN data source is required")
	}
	return errs
}
