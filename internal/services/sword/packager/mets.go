package packager

import (
	"context"
	"encoding/xml"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
)

// METSName is the plugin name of the DSpace METS SIP ingester
const METSName = "METS"

// Manifest is the required root entry of a METS package
const Manifest = "mets.xml"

type metsDoc struct {
	XMLName xml.Name `xml:"mets"`
	ObjID   string   `xml:"OBJID,attr"`
	DmdSecs []struct {
		ID     string `xml:"ID,attr"`
		MdWrap struct {
			MDType  string `xml:"MDTYPE,attr"`
			XMLData node   `xml:"xmlData"`
		} `xml:"mdWrap"`
	} `xml:"dmdSec"`
	FileGrps []struct {
		Use   string     `xml:"USE,attr"`
		Files []metsFile `xml:"file"`
	} `xml:"fileSec>fileGrp"`
}

type metsFile struct {
	ID       string `xml:"ID,attr"`
	MIMEType string `xml:"MIMETYPE,attr"`
	FLocat   node   `xml:"FLocat"`
}

// METS ingests DSpace METS SIP zips
type METS struct{}

// NewMETS builds the METS package ingester
func NewMETS() *METS { return &METS{} }

func (m *METS) Ingest(ctx context.Context, s *content.Session, col *domain.Collection, pkg string, p Params) (*domain.Item, error) {
	log := logger.C(ctx).With().Str("collection", col.Handle).Logger()

	f, err := os.Open(pkg)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "open package")
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "stat package")
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return nil, domain.FailWrap(err, domain.PackageValidationError, "package is not a readable zip")
	}
	entries := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		entries[path.Clean(zf.Name)] = zf
	}

	mf, ok := entries[Manifest]
	if !ok {
		return nil, domain.Fail(domain.PackageValidationError, "package has no %s manifest", Manifest)
	}
	doc, err := readManifest(mf)
	if err != nil {
		return nil, err
	}
	p.Verbose.Printf("Read manifest with %d descriptive sections", len(doc.DmdSecs))

	var md domain.Metadata
	if p.UseCollectionTemplate {
		md = col.Template.Clone()
		p.Verbose.Printf("Copied %d values from the %s item template", len(md), col.Name)
	}
	for _, dmd := range doc.DmdSecs {
		crosswalk(dmd.MdWrap.XMLData, &md)
	}

	it, err := s.CreateItem(ctx, col)
	if err != nil {
		return nil, err
	}
	it.Metadata = md
	if err := s.UpdateItem(ctx, it); err != nil {
		return nil, err
	}

	orig, err := s.Bundle(ctx, it, domain.BundleOriginal)
	if err != nil {
		return nil, err
	}
	for _, grp := range doc.FileGrps {
		for _, mfile := range grp.Files {
			if err := m.addFile(ctx, s, orig, entries, mfile); err != nil {
				return nil, err
			}
			p.Verbose.Printf("Added file %s", mfile.FLocat.attr("href"))
		}
	}

	if col.License != "" {
		lic, err := s.Bundle(ctx, it, domain.BundleLicense)
		if err != nil {
			return nil, err
		}
		_, err = s.StoreBitstream(ctx, lic, content.NewBitstream{
			Name:     "license.txt",
			Source:   "Written by SWORD deposit",
			MIMEType: "text/plain; charset=utf-8",
			Size:     int64(len(col.License)),
			Body:     strings.NewReader(col.License),
		})
		if err != nil {
			return nil, err
		}
	}

	if p.WorkflowEnabled && col.WorkflowEnabled {
		if err := s.StartWorkflow(ctx, it); err != nil {
			return nil, err
		}
		log.Debug().Str("item", it.ID.String()).Msg("item placed in workflow")
		p.Verbose.Printf("Item placed in the collection workflow")
		return it, nil
	}

	opt := content.InstallOptions{Prefix: p.HandlePrefix, Canonical: p.CanonicalPrefix}
	if p.RestoreMode {
		if h, ok := strings.CutPrefix(strings.TrimSpace(doc.ObjID), "hdl:"); ok {
			opt.Handle = h
		}
	}
	if err := s.InstallItem(ctx, it, opt); err != nil {
		return nil, err
	}
	if opt.Handle != "" && opt.Handle != it.Handle {
		log.Warn().Str("wanted", opt.Handle).Str("handle", it.Handle).Msg("restore handle taken, minted a new one")
	}
	p.Verbose.Printf("Item installed with handle %s", it.Handle)
	return it, nil
}

func readManifest(zf *zip.File) (*metsDoc, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, domain.FailWrap(err, domain.PackageValidationError, "cannot open %s", Manifest)
	}
	defer rc.Close()
	var doc metsDoc
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, domain.FailWrap(err, domain.PackageValidationError, "cannot parse %s", Manifest)
	}
	return &doc, nil
}

func (m *METS) addFile(ctx context.Context, s *content.Session, b *domain.Bundle, entries map[string]*zip.File, mf metsFile) error {
	href := strings.TrimSpace(mf.FLocat.attr("href"))
	name := path.Clean(strings.TrimPrefix(href, "./"))
	if href == "" || path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return domain.Fail(domain.PackageValidationError, "file %q has an invalid location %q", mf.ID, href)
	}
	zf, ok := entries[name]
	if !ok {
		return domain.Fail(domain.PackageValidationError, "file %s is listed in the manifest but not in the package", name)
	}
	mimeType := mf.MIMEType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(name))
	}
	rc, err := zf.Open()
	if err != nil {
		return domain.FailWrap(err, domain.PackageError, "cannot read %s", name)
	}
	defer rc.Close()
	_, err = s.StoreBitstream(ctx, b, content.NewBitstream{
		Name:     path.Base(name),
		Source:   name,
		MIMEType: mimeType,
		Size:     int64(zf.UncompressedSize64),
		Body:     io.LimitReader(rc, int64(zf.UncompressedSize64)),
	})
	return err
}
