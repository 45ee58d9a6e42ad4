package database

import (
	"fmt"
	"strings"
)

const (
	tableCompanies          = "companies"
	tableGroups             = "training_groups"
	tableInvitations        = "invitation_codes"
	tableGroupMemberships   = "group_memberships"
	tableCompanyMemberships = "company_memberships"
	tableUsers              = "users"
)

type index struct {
	name    string
	columns string
}

type tableDef struct {
	name    string
	columns []string
	indexes []index
}

// Timestamps are unix milliseconds in BIGINT columns so both dialects store
// them the same way; 0 means unset.
var tableDefs = []tableDef{
	{
		name: tableCompanies,
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"company_name VARCHAR(200) NOT NULL",
			"tax_number VARCHAR(32) NOT NULL UNIQUE",
			"status VARCHAR(16) NOT NULL",
			"contact_name VARCHAR(200) NOT NULL DEFAULT ''",
			"contact_email VARCHAR(254) NOT NULL DEFAULT ''",
			"contact_phone VARCHAR(32) NOT NULL DEFAULT ''",
			"address VARCHAR(500) NOT NULL DEFAULT ''",
			"country VARCHAR(2) NOT NULL DEFAULT ''",
			"rejection_reason VARCHAR(1000) NOT NULL DEFAULT ''",
			"reviewed_by VARCHAR(36) NOT NULL DEFAULT ''",
			"reviewed_at BIGINT NOT NULL DEFAULT 0",
			"created_at BIGINT NOT NULL",
		},
		indexes: []index{{name: "idx_companies_status", columns: "status"}},
	},
	{
		name: tableGroups,
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"name VARCHAR(200) NOT NULL",
			"company_id VARCHAR(36) NOT NULL DEFAULT ''",
			"max_participants INT NOT NULL",
			"status VARCHAR(16) NOT NULL",
			"created_by VARCHAR(36) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
		indexes: []index{{name: "idx_groups_company", columns: "company_id"}},
	},
	{
		name: tableInvitations,
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"code VARCHAR(32) NOT NULL UNIQUE",
			"scope VARCHAR(16) NOT NULL",
			"target_id VARCHAR(36) NOT NULL",
			"max_uses INT NOT NULL",
			"current_uses INT NOT NULL DEFAULT 0",
			"expires_at BIGINT NOT NULL",
			"is_active TINYINT NOT NULL DEFAULT 1",
			"description VARCHAR(500) NOT NULL DEFAULT ''",
			"created_by VARCHAR(36) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
		indexes: []index{{name: "idx_invitations_target", columns: "scope, target_id"}},
	},
	{
		name: tableGroupMemberships,
		columns: []string{
			"group_id VARCHAR(36) NOT NULL",
			"user_id VARCHAR(36) NOT NULL",
			"status VARCHAR(16) NOT NULL",
			"invitation_id VARCHAR(36) NOT NULL DEFAULT ''",
			"joined_at BIGINT NOT NULL",
			"PRIMARY KEY (group_id, user_id)",
		},
	},
	{
		name: tableCompanyMemberships,
		columns: []string{
			"company_id VARCHAR(36) NOT NULL",
			"user_id VARCHAR(36) NOT NULL",
			"joined_at BIGINT NOT NULL",
			"PRIMARY KEY (company_id, user_id)",
		},
	},
	{
		name: tableUsers,
		columns: []string{
			"id VARCHAR(36) NOT NULL PRIMARY KEY",
			"email VARCHAR(254) NOT NULL UNIQUE",
			"name VARCHAR(200) NOT NULL",
			"password_hash VARCHAR(100) NOT NULL",
			"role VARCHAR(16) NOT NULL",
			"company_id VARCHAR(36) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
	},
}

// createStatements returns the DDL for one table. MySQL has no
// CREATE INDEX IF NOT EXISTS, so its indexes go inline.
func (s *SqlStore) createStatements(def tableDef) []string {
	columns := append([]string{}, def.columns...)
	var extra []string
	for _, idx := range def.indexes {
		if s.dialect.inlineIndex {
			columns = append(columns, fmt.Sprintf("INDEX %s (%s)", idx.name, idx.columns))
		} else {
			extra = append(extra, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s%s ON %s (%s)",
				s.prefix, idx.name, s.table(def.name), idx.columns))
		}
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		s.table(def.name), strings.Join(columns, ",\n\t"))
	return append([]string{create}, extra...)
}

func (s *SqlStore) migrate() error {
	for _, def := range tableDefs {
		for _, stmt := range s.createStatements(def) {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("create table %s: %w", def.name, err)
			}
		}
	}
	return nil
}
